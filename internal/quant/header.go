package quant

import (
	"bufio"
	"fmt"
	"io"
)

// DefaultArrayName is the symbol the engine links the embedded network under.
const DefaultArrayName = "nnue_data"

const headerBytesPerLine = 12

// WriteCHeader renders data as a C header so that the engine can embed the network at build time:
//
//	const uint8_t <name>[] = { 0x.., ... };
//	const uint32_t <name>_len = <len>;
func WriteCHeader(w io.Writer, data []byte, name string) error {
	if !isCIdentifier(name) {
		return fmt.Errorf("quant: %q is not a C identifier", name)
	}
	var bw = bufio.NewWriter(w)
	fmt.Fprintf(bw, "#ifndef NNUE_EMBEDDED_H\n#define NNUE_EMBEDDED_H\n\n#include <stdint.h>\n\n")
	fmt.Fprintf(bw, "const uint8_t %s[] = {\n", name)
	for i, b := range data {
		fmt.Fprintf(bw, "0x%02x, ", b)
		if (i+1)%headerBytesPerLine == 0 {
			bw.WriteString("\n  ")
		}
	}
	fmt.Fprintf(bw, "\n};\n\nconst uint32_t %s_len = %d;\n\n#endif // NNUE_EMBEDDED_H\n", name, len(data))
	return bw.Flush()
}

// WriteCHeaderFile replaces path with the header of data.
func WriteCHeaderFile(path string, data []byte, name string) error {
	return writeAtomic(path, func(w io.Writer) error {
		return WriteCHeader(w, data, name)
	})
}

func isCIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		var c = s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
