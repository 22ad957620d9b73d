package codec

import "fmt"

// Xor returns a XOR (b repeated to len(a)). Requires len(a) >= len(b) > 0.
func Xor(a, b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("codec: xor key must not be empty")
	}
	if len(a) < len(b) {
		return nil, fmt.Errorf("codec: xor key longer than input")
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i%len(b)]
	}
	return out, nil
}
