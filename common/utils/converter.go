package utils

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	prt "github.com/abcfe/abcfe-metadata/protocol"
)

// MagicHashToString 매직 해시를 16진수 문자열로 변환
func MagicHashToString(hash prt.MagicHash) string {
	return hex.EncodeToString(hash[:])
}

// StringToMagicHash 16진수 문자열을 MagicHash 타입으로 변환
func StringToMagicHash(str string) (prt.MagicHash, error) {
	// 0x 접두사 제거
	if len(str) >= 2 && str[0:2] == "0x" {
		str = str[2:]
	}
	bytes, err := hex.DecodeString(str)
	if err != nil {
		return prt.MagicHash{}, fmt.Errorf("invalid magic hash string: %v", err)
	}

	if len(bytes) != len(prt.MagicHash{}) {
		return prt.MagicHash{}, fmt.Errorf("invalid magic hash length: %d (need 32 bytes)", len(bytes))
	}

	var hash prt.MagicHash
	copy(hash[:], bytes)
	return hash, nil
}

// BytesToMagicHash 바이트 배열을 MagicHash 타입으로 변환
func BytesToMagicHash(bytes []byte) (prt.MagicHash, error) {
	var hash prt.MagicHash
	if len(bytes) != len(hash) {
		return hash, fmt.Errorf("invalid magic hash length: %d (need 32 bytes)", len(bytes))
	}
	copy(hash[:], bytes)
	return hash, nil
}

// SignatureToBase64 서명을 base64 문자열로 변환 (와이어 포맷)
func SignatureToBase64(sig prt.Signature) string {
	return base64.StdEncoding.EncodeToString(sig[:])
}

// Base64ToSignature base64 문자열을 Signature 타입으로 변환
func Base64ToSignature(str string) (prt.Signature, error) {
	bytes, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return prt.Signature{}, fmt.Errorf("invalid signature string: %v", err)
	}

	// compact 서명은 고정 65바이트
	if len(bytes) != len(prt.Signature{}) {
		return prt.Signature{}, fmt.Errorf("invalid signature length: %d (need 65 bytes)", len(bytes))
	}

	var sig prt.Signature
	copy(sig[:], bytes)
	return sig, nil
}

// SerializeData 객체를 JSON 바이트 배열로 직렬화
func SerializeData(data interface{}) ([]byte, error) {
	return json.Marshal(data)
}

// DeserializeData JSON 바이트 배열을 객체로 역직렬화
func DeserializeData(data []byte, result interface{}) error {
	return json.Unmarshal(data, result)
}

// Uint64ToString uint64 값을 문자열로 변환
func Uint64ToString(value uint64) string {
	return strconv.FormatUint(value, 10)
}

// Uint64ToBytes uint64 값을 바이트 배열로 변환 (DB 값용)
func Uint64ToBytes(value uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return buf
}

// BytesToUint64 바이트 배열에서 uint64 값 추출
func BytesToUint64(data []byte) uint64 {
	if len(data) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}
