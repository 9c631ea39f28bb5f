// Package ply reads and writes Stanford PLY files in ascii,
// binary_little_endian and binary_big_endian formats.
//
// Element data is held column by column. A [Column] stores the values of one
// property exactly as they were encoded in the source: raw bytes in the file
// byte order for binary files, token text for ascii files. Writing a column
// back therefore reproduces its values bit for bit, which lets callers
// project a schema without ever decoding or re-encoding values.
package ply
