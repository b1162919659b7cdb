package service

import "crypto/rand"

// codeAlphabet excludes the lookalike characters 0, 1, I and O so codes
// survive being read aloud or written on a whiteboard.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	orgCodeLength  = 6
	examCodeLength = 8
)

func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
