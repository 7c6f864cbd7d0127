// Package main provides the partlister CLI.
//
// partlister turns photos of an automotive part into listing data: OCR text, a probable
// part number, and title/description/price suggestions.
//
// Usage:
//
//	partlister ocr <images...>
//	partlister generate <images...>
//	partlister batch <dir>
//	partlister serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
