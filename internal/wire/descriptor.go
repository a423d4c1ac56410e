package wire

// evdev bitmask table sizes, sized to the ABS/KEY/REL/SW/LED/FF/PROP
// ranges of the target kernel ABI (KEY_MAX=0x2ff, ABS_MAX=0x3f,
// REL_MAX=0x0f, SW_MAX=0x10, LED_MAX=0x0f, FF_MAX=0x7f,
// INPUT_PROP_MAX=0x1f), each (MAX+1)/8 bytes with integer division, so
// SW's 17 bits get 2 bytes, matching the guest's struct layout.
const (
	nameLen             = 80
	keyBitmaskLen       = (0x2ff + 1) / 8
	absBitmaskLen       = (0x3f + 1) / 8
	relBitmaskLen       = (0x0f + 1) / 8
	swBitmaskLen        = (0x10 + 1) / 8
	ledBitmaskLen       = (0x0f + 1) / 8
	ffBitmaskLen        = (FF_MAX + 1) / 8
	propBitmaskLen      = (0x1f + 1) / 8
	absCnt              = AbsCnt
)

// FF_MAX is not part of the ABS/KEY family; kept local to this file since
// nothing outside the descriptor layout needs it.
const FF_MAX = 0x7f

// DeviceDescriptor is the fixed-layout record sent once, verbatim, as the
// first bytes written to a new guest consumer of a virtual input device.
type DeviceDescriptor struct {
	Name             string // truncated/NUL-padded to nameLen on encode
	DriverVersion    int32
	Product          uint16
	Vendor           uint16
	Version          uint16
	Bustype          uint16
	PhysicalLocation string // truncated/NUL-padded to nameLen
	UniqueID         string // truncated/NUL-padded to nameLen

	KeyBitmask  [keyBitmaskLen]byte
	AbsBitmask  [absBitmaskLen]byte
	RelBitmask  [relBitmaskLen]byte
	SwBitmask   [swBitmaskLen]byte
	LedBitmask  [ledBitmaskLen]byte
	FfBitmask   [ffBitmaskLen]byte
	PropBitmask [propBitmaskLen]byte

	AbsMax [absCnt]uint32
	AbsMin [absCnt]uint32
}

// DescriptorSize is the fixed wire size of an encoded DeviceDescriptor.
const DescriptorSize = nameLen /*name*/ +
	4 /*driver_version*/ +
	2 + 2 + 2 + 2 /*product,vendor,version,bustype*/ +
	nameLen /*physical_location*/ +
	nameLen /*unique_id*/ +
	keyBitmaskLen + absBitmaskLen + relBitmaskLen + swBitmaskLen + ledBitmaskLen + ffBitmaskLen + propBitmaskLen +
	absCnt*4 + absCnt*4 /*abs_max, abs_min*/

func putCString(dst []byte, s string) {
	b := []byte(s)
	n := len(b)
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	copy(dst, b[:n])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func putU16(dst []byte, v uint16) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

// Encode serializes the descriptor field-by-little-endian-field. Never
// reinterprets Go struct memory as the wire format.
func (d DeviceDescriptor) Encode() []byte {
	buf := make([]byte, DescriptorSize)
	off := 0

	putCString(buf[off:off+nameLen], d.Name)
	off += nameLen

	putU32(buf[off:off+4], uint32(d.DriverVersion))
	off += 4

	putU16(buf[off:off+2], d.Product)
	off += 2
	putU16(buf[off:off+2], d.Vendor)
	off += 2
	putU16(buf[off:off+2], d.Version)
	off += 2
	putU16(buf[off:off+2], d.Bustype)
	off += 2

	putCString(buf[off:off+nameLen], d.PhysicalLocation)
	off += nameLen

	putCString(buf[off:off+nameLen], d.UniqueID)
	off += nameLen

	off += copy(buf[off:], d.KeyBitmask[:])
	off += copy(buf[off:], d.AbsBitmask[:])
	off += copy(buf[off:], d.RelBitmask[:])
	off += copy(buf[off:], d.SwBitmask[:])
	off += copy(buf[off:], d.LedBitmask[:])
	off += copy(buf[off:], d.FfBitmask[:])
	off += copy(buf[off:], d.PropBitmask[:])

	for _, v := range d.AbsMax {
		putU32(buf[off:off+4], v)
		off += 4
	}
	for _, v := range d.AbsMin {
		putU32(buf[off:off+4], v)
		off += 4
	}

	return buf
}
