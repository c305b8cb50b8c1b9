package network

import "bytes"

var crlf = []byte("\r\n")

// SplitFrames cuts an input into CRLF-terminated frames. Each frame keeps its
// CRLF; trailing bytes without one form the last frame.
func SplitFrames(input []byte) [][]byte {
	var frames [][]byte
	for len(input) > 0 {
		i := bytes.Index(input, crlf)
		if i < 0 {
			frames = append(frames, input)
			break
		}
		frames = append(frames, input[:i+len(crlf)])
		input = input[i+len(crlf):]
	}
	return frames
}
