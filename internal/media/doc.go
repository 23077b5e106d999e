// Package media resolves catalog tracks to downloadable audio through yt-dlp.
//
// A [Resolver] searches the media index for a handful of candidates, accepts the first whose length is within a
// tolerance of the catalog duration, and extracts its audio to a local file. Process execution sits behind [Runner].
package media
