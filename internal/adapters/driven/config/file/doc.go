// Package file provides file-based implementations of driven port interfaces.
//
// ConfigStore keeps settings in ~/.gapps/config.toml. Keys are addressed with
// dots, so "drive.page_size" is page_size in the [drive] table.
package file
