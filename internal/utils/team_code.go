package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/yukikurage/teamwork-api/internal/constants"
)

// GenerateTeamCode returns a random join code such as "K7Q2ZD".
func GenerateTeamCode() (string, error) {
	alphabet := constants.TeamCodeAlphabet
	max := big.NewInt(int64(len(alphabet)))

	code := make([]byte, constants.TeamCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		code[i] = alphabet[n.Int64()]
	}

	return string(code), nil
}
