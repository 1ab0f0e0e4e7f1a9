// Package textutil cleans the strings lacquer derives from user input.
// SanitizeFileName makes episode titles safe to use as output filenames,
// SanitizeToken produces lowercase identifiers for working directories,
// and TitleFromPath turns a source path into a presentable episode title.
package textutil
