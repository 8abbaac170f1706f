package audio

// SplitFrames cuts buf into consecutive frames of size bytes. Every frame has
// exactly size bytes except possibly the last. The frames alias buf.
func SplitFrames(buf []byte, size int) [][]byte {
	if len(buf) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]byte{buf}
	}

	frames := make([][]byte, 0, (len(buf)+size-1)/size)
	for start := 0; start < len(buf); start += size {
		end := start + size
		if end > len(buf) {
			end = len(buf)
		}
		frames = append(frames, buf[start:end])
	}
	return frames
}
