package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// EncodeBase62 encodes n by repeated division by 62, most significant symbol first
func EncodeBase62(n uint64) string {
	if n == 0 {
		return base62Alphabet[:1]
	}
	var buf [11]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(buf[i:])
}

// DecodeBase62 is the inverse of EncodeBase62
func DecodeBase62(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty base62 string")
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(base62Alphabet, s[i])
		if idx < 0 {
			return 0, fmt.Errorf("invalid base62 character %q", s[i])
		}
		n = n*62 + uint64(idx)
	}
	return n, nil
}

// CodeGenerator produces short codes that no stored link uses, active or not
type CodeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

type CodeGeneratorImpl struct {
	repo        repository.ShortLinkRepository
	now         func() time.Time
	random      func() (string, error)
	maxAttempts int
}

func NewCodeGenerator(repo repository.ShortLinkRepository) *CodeGeneratorImpl {
	return &CodeGeneratorImpl{
		repo:        repo,
		now:         utils.UTCNow,
		random:      randomCode,
		maxAttempts: utils.MaxGenerateAttempts,
	}
}

func randomCode() (string, error) {
	return gonanoid.Generate(base62Alphabet, utils.ShortCodeLength)
}

// timestampCode encodes a millisecond timestamp, keeping the first ShortCodeLength symbols
func timestampCode(ms int64) string {
	code := EncodeBase62(uint64(ms))
	if len(code) > utils.ShortCodeLength {
		code = code[:utils.ShortCodeLength]
	}
	return code
}

// Generate tries timestamp derived candidates first, bumping the timestamp by one
// millisecond per attempt, then falls back to random codes until one is free
func (g *CodeGeneratorImpl) Generate(ctx context.Context) (string, error) {
	base := g.now().UnixMilli()
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code := timestampCode(base + int64(attempt))
		exists, err := g.repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.random()
		if err != nil {
			return "", fmt.Errorf("failed to generate random code: %w", err)
		}
		exists, err := g.repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}
