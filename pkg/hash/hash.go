// Package hash 提供密码的加盐哈希与校验。
package hash

import "golang.org/x/crypto/bcrypt"

// Cost 是 bcrypt 的计算成本。
const Cost = 12

// HashPassword 对明文密码做 bcrypt 哈希（盐值随机生成并编码在结果中）。
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash 以恒定时间比较明文密码与哈希值。
func CheckPasswordHash(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
