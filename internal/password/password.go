package password

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt with a configurable work factor. bcrypt salts every
// digest itself, so hashing the same plaintext twice never yields the same
// output.
type Hasher struct {
	cost int
}

// NewHasher clamps cost to the bcrypt-supported range; zero or below selects
// bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored digest. Any failure,
// including a corrupted digest, is reported as a mismatch.
func (h *Hasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
