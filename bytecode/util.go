package bytecode

// copyStrings returns a copy of the given string slice.
func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// copyBytes returns a copy of the given byte slice.
func copyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// copyConstants returns a copy of the given constant slice.
func copyConstants(src []Constant) []Constant {
	if src == nil {
		return nil
	}
	dst := make([]Constant, len(src))
	copy(dst, src)
	return dst
}
