// Package multiboot provides read-only access to the boot information
// structure that a multiboot2-compliant loader hands to the kernel entry
// point. The structure is owned by the loader and is never modified; none of
// the accessors allocate memory.
package multiboot

import "unsafe"

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
	tagElfSymbols
	tagApmTable
)

// tagHeader describes the header the preceedes each tag.
type tagHeader struct {
	// The type of the tag
	tagType tagType

	// The size of the tag including the header but *not* including any
	// padding. Each tag starts at a 8-byte aligned address.
	size uint32
}

// mmapHeader describes the header for a memory map specification.
type mmapHeader struct {
	// The size of each entry.
	entrySize uint32

	// The version of the entries that follow.
	entryVersion uint32
}

// FramebufferType defines the type of the initialized framebuffer.
type FramebufferType uint8

const (
	// FramebufferTypeIndexed specifies a 256-color palette.
	FramebufferTypeIndexed FramebufferType = iota

	// FramebufferTypeRGB specifies direct RGB mode.
	FramebufferTypeRGB

	// FramebufferTypeEGA specifies EGA text mode.
	FramebufferTypeEGA
)

// FramebufferInfo provides information about the initialized framebuffer.
type FramebufferInfo struct {
	// The framebuffer physical address.
	PhysAddr uint64

	// Row pitch in bytes.
	Pitch uint32

	// Width and height in pixels (or characters if Type = FramebufferTypeEGA)
	Width, Height uint32

	// Bits per pixel (non EGA modes only).
	Bpp uint8

	// Framebuffer type.
	Type FramebufferType
}

// MemoryEntryType defines the type of a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable indicates that the memory region is available for use.
	MemAvailable MemoryEntryType = iota + 1

	// MemReserved indicates that the memory region is not available for use.
	MemReserved

	// MemAcpiReclaimable indicates a memory region that holds ACPI info that
	// can be reused by the OS.
	MemAcpiReclaimable

	// MemNvs indicates memory that must be preserved when hibernating.
	MemNvs

	// Any value >= memUnknown is reported as MemReserved.
	memUnknown
)

// String implements fmt.Stringer for MemoryEntryType.
func (t MemoryEntryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemAcpiReclaimable:
		return "ACPI (reclaimable)"
	case MemNvs:
		return "NVS"
	default:
		return "unknown"
	}
}

// MemoryMapEntry describes a memory region entry, namely its physical address,
// its length and its type.
type MemoryMapEntry struct {
	// The physical address for this memory region.
	PhysAddress uint64

	// The length of the memory region.
	Length uint64

	// The type of this entry.
	Type MemoryEntryType
}

// MemRegionVisitor defines a visitor function that gets invoked by
// VisitMemRegions for each memory region provided by the boot loader. The
// visitor must return true to continue or false to abort the scan.
type MemRegionVisitor func(entry MemoryMapEntry) bool

// CmdLineVisitor is invoked by VisitCmdLine for each key/value pair of the
// boot command line. Flags without a value are reported with value == key.
// The visitor must return true to continue or false to abort the scan.
type CmdLineVisitor func(key, value []byte) bool

var infoData uintptr

// SetInfoPtr updates the internal multiboot information pointer to the given
// value. This function must be invoked before invoking any other function
// exported by this package. A zero pointer means that no boot information
// is available and all lookups come back empty.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// Present returns true if the loader supplied a boot information structure.
func Present() bool {
	return infoData != 0
}

// VisitMemRegions will invoke the supplied visitor for each memory region that
// is defined by the multiboot info data that we received from the bootloader.
// Entries with an unknown type are reported as MemReserved.
func VisitMemRegions(visitor MemRegionVisitor) {
	curPtr, size := findTagByType(tagMemoryMap)
	if size == 0 {
		return
	}

	// curPtr points to the memory map header (2 dwords long)
	ptrMapHeader := (*mmapHeader)(unsafe.Pointer(curPtr))
	endPtr := curPtr + uintptr(size)
	curPtr += 8

	for curPtr < endPtr {
		entry := *(*MemoryMapEntry)(unsafe.Pointer(curPtr))
		if entry.Type == 0 || entry.Type >= memUnknown {
			entry.Type = MemReserved
		}

		if !visitor(entry) {
			return
		}

		curPtr += uintptr(ptrMapHeader.entrySize)
	}
}

// AvailableMemory returns the total size in bytes of all regions that the
// loader marked as available.
func AvailableMemory() uint64 {
	var total uint64
	VisitMemRegions(func(entry MemoryMapEntry) bool {
		if entry.Type == MemAvailable {
			total += entry.Length
		}
		return true
	})

	return total
}

// GetFramebufferInfo returns information about the framebuffer initialized by the
// bootloader. This function returns nil if no framebuffer info is available.
func GetFramebufferInfo() *FramebufferInfo {
	curPtr, size := findTagByType(tagFramebufferInfo)
	if size == 0 {
		return nil
	}

	return (*FramebufferInfo)(unsafe.Pointer(curPtr))
}

// BootLoaderName returns the name of the loader that booted the kernel or nil
// if the loader did not supply one. The returned slice aliases the boot
// information and must not be modified.
func BootLoaderName() []byte {
	return cString(findTagByType(tagBootLoaderName))
}

// CmdLine returns the raw boot command line or nil if none was supplied. The
// returned slice aliases the boot information and must not be modified.
func CmdLine() []byte {
	return cString(findTagByType(tagBootCmdLine))
}

// VisitCmdLine splits the boot command line into whitespace-separated
// "key=value" or "flag" fields and invokes visitor for each one.
func VisitCmdLine(visitor CmdLineVisitor) {
	cmdLine := CmdLine()

	for start := 0; start < len(cmdLine); {
		for start < len(cmdLine) && isSpace(cmdLine[start]) {
			start++
		}

		end := start
		for end < len(cmdLine) && !isSpace(cmdLine[end]) {
			end++
		}

		if start == end {
			return
		}

		field := cmdLine[start:end]
		key, value := field, field
		for i, ch := range field {
			if ch == '=' {
				key, value = field[:i], field[i+1:]
				break
			}
		}

		if !visitor(key, value) {
			return
		}

		start = end
	}
}

// CmdLineValue looks up key in the boot command line.
func CmdLineValue(key string) ([]byte, bool) {
	var (
		found bool
		value []byte
	)

	VisitCmdLine(func(k, v []byte) bool {
		if string(k) != key {
			return true
		}

		found, value = true, v
		return false
	})

	return value, found
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// cString overlays a byte slice on top of a NULL-terminated string of at most
// size bytes located at ptr. The terminator is not included.
func cString(ptr uintptr, size uint32) []byte {
	if size == 0 {
		return nil
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)
	for i, ch := range data {
		if ch == 0 {
			return data[:i]
		}
	}

	return data
}

// findTagByType scans the multiboot info data looking for the start of of the
// specified type. It returns a pointer to the tag contents start offset and
// the content length exluding the tag header.
//
// If the tag is not present in the multiboot info, findTagByType will return
// back (0,0).
func findTagByType(tagType tagType) (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	var ptrTagHeader *tagHeader

	curPtr := infoData + 8
	for ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)); ptrTagHeader.tagType != tagMbSectionEnd; ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)) {
		if ptrTagHeader.tagType == tagType {
			return curPtr + 8, ptrTagHeader.size - 8
		}

		// Tags are aligned at 8-byte aligned addresses
		curPtr += uintptr(int32(ptrTagHeader.size+7) & ^7)
	}

	return 0, 0
}
