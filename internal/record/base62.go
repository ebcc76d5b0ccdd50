package record

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// encodeBase62 converts b to a base62 string. Hashed keys and signatures
// use base62 so physical keys stay JSON- and filesystem-safe without the
// padding or separator characters of base64.
func encodeBase62(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	// Big-endian base conversion, least significant digit first.
	digits := []byte{0}
	for _, c := range b {
		carry := int(c)
		for i := 0; i < len(digits); i++ {
			carry += int(digits[i]) << 8
			digits[i] = byte(carry % 62)
			carry /= 62
		}
		for carry > 0 {
			digits = append(digits, byte(carry%62))
			carry /= 62
		}
	}

	out := make([]byte, len(digits))
	for i := range digits {
		out[i] = base62Alphabet[digits[len(digits)-1-i]]
	}
	return string(out)
}
