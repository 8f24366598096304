package assets

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
)

const spirvMagic uint32 = 0x07230203

// LoadSPIRV reads a compiled shader module as 32-bit words.
func LoadSPIRV(path string) ([]uint32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading shader %s", path)
	}
	code, err := BytesToBytecode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	return code, nil
}

func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return nil, errors.Newf("invalid SPIR-V size %d", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad SPIR-V magic %#08x", byteCode[0])
	}
	return byteCode, nil
}
