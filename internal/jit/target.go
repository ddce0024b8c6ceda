package jit

import (
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/cpu"
)

// TargetConfig describes the machine the module generates code for.
type TargetConfig struct {
	Arch        string   // GOARCH of the host
	PointerBits int      // width of an address
	Features    []string // ISA extensions reported by the CPU
}

// PointerType returns the machine type used for addresses.
func (t TargetConfig) PointerType() Type {
	if t.PointerBits == 32 {
		return I32
	}
	return I64
}

// HasFeature reports whether the target advertises the named extension.
func (t TargetConfig) HasFeature(name string) bool {
	for _, f := range t.Features {
		if f == name {
			return true
		}
	}
	return false
}

// String formats the target as "arch/bits +feature...", the header line of
// module listings.
func (t TargetConfig) String() string {
	var sb strings.Builder
	sb.WriteString(t.Arch)
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(t.PointerBits))
	for _, f := range t.Features {
		sb.WriteString(" +")
		sb.WriteString(f)
	}
	return sb.String()
}

// NativeTarget returns the configuration of the running host.
func NativeTarget() TargetConfig {
	t := TargetConfig{
		Arch:        runtime.GOARCH,
		PointerBits: strconv.IntSize,
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		t.Features = appendIf(t.Features, cpu.X86.HasSSE2, "sse2")
		t.Features = appendIf(t.Features, cpu.X86.HasSSE41, "sse4.1")
		t.Features = appendIf(t.Features, cpu.X86.HasPOPCNT, "popcnt")
		t.Features = appendIf(t.Features, cpu.X86.HasAVX2, "avx2")
		t.Features = appendIf(t.Features, cpu.X86.HasFMA, "fma")
	case "arm64":
		t.Features = appendIf(t.Features, cpu.ARM64.HasFP, "fp")
		t.Features = appendIf(t.Features, cpu.ARM64.HasASIMD, "asimd")
		t.Features = appendIf(t.Features, cpu.ARM64.HasATOMICS, "lse")
	}
	return t
}

func appendIf(fs []string, ok bool, name string) []string {
	if ok {
		return append(fs, name)
	}
	return fs
}
