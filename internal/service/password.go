package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt只看前72个字节，超出的直接拒绝，免得两个不同的密码哈希出同一个结果
const maxPasswordBytes = 72

func hashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: 密码不能超过%d个字节", ErrInvalidInput, maxPasswordBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func checkPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
