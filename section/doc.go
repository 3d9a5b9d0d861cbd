// Package section reads and writes the physical layout of drawing files: file headers, the
// page directory, the section map, and the pages that make up each named section stream.
//
// # Overview
//
// The package covers three container generations, selected by the version tag at offset 0:
//
//  1. AC15 (R13 to R2000): a file header of locator records pointing at raw section blocks.
//  2. AC18 (R2004, R2010 and later): masked, checksummed, LZ77 compressed pages.
//  3. AC21 (R2007): Reed-Solomon interleaved pages compressed with the AC21 codec.
//
// Load parses the header and maps into a Map; Map.Read assembles one section stream.
//
// # AC18 Layout
//
//	┌─────────────────────────────────────────────────────────┐
//	│ File header (0x100 bytes)                               │
//	│  - Fixed fields (0x00-0x7F)                             │
//	│  - Metadata (0x6C bytes at 0x80), XOR magic sequence    │
//	├─────────────────────────────────────────────────────────┤
//	│ Data pages (0x20 aligned)                               │
//	│  - Header (0x20 bytes), masked with 0x4164536B^address  │
//	│  - Body, LZ77 AC18 when the section is compressed       │
//	├─────────────────────────────────────────────────────────┤
//	│ Section map page (system page header + body)            │
//	├─────────────────────────────────────────────────────────┤
//	│ Page map page (system page header + body)               │
//	├─────────────────────────────────────────────────────────┤
//	│ Copy of the file header                                 │
//	└─────────────────────────────────────────────────────────┘
//
// # Missing Pages
//
// Writers leave out pages that are entirely zero. The section map still declares the
// section's full size, so Descriptor.Reconstruct inserts synthetic zero pages wherever a
// declared page offset jumps ahead of the bytes accounted for, and appends them until the
// declared size is reached.
//
// # Integrity
//
// Page checksums (Checksum), header CRCs (CRC16, CRC32) and masking (Mask) live in
// security.go. Mismatches are reported through the diagnostics collector and only fail a
// read when Config.StrictChecksums is set and the section is mandatory.
package section
