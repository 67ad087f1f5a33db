package utils

import (
	"crypto/sha256"
)

// Sha256 단일 SHA-256 다이제스트를 슬라이스로 반환
func Sha256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
