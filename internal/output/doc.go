// Package output provides the destinations a stripped PLY file is written to.
//
// Every destination implements [Writer], which streams content produced by a
// [WriteFunc] and reports the number of bytes written:
//
//   - [FileWriter] writes to a temporary file next to the target and renames
//     it into place only after the content is complete, so a failed run never
//     leaves a truncated file behind.
//
//   - [StdoutWriter] streams to standard output (the "-" output path).
//
//   - [DiscardWriter] only counts bytes, for dry runs.
package output
