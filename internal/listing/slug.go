package listing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLength = 200

// maxCreateAttempts bounds reruns of a create that lost a slug race
const maxCreateAttempts = 3

// uniqueViolation is the PostgreSQL SQLSTATE for a unique index conflict
const uniqueViolation pq.ErrorCode = "23505"

// slugify lowercases the title and collapses everything that is not a
// letter or digit into single hyphens.
func slugify(title string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	if s == "" {
		return "property"
	}
	return s
}

// uniqueSlug returns the slug for title, suffixed -2, -3... when taken
func uniqueSlug(tx *gorm.DB, title string) (string, error) {
	base := slugify(title)

	var taken []string
	err := tx.Model(&models.Property{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &taken).Error
	if err != nil {
		return "", fmt.Errorf("load slugs: %w", err)
	}

	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}
	if !used[base] {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !used[candidate] {
			return candidate, nil
		}
	}
}

// isDuplicateKey reports whether err is a unique index conflict. gorm
// translates MySQL and SQLite errors to ErrDuplicatedKey; its postgres
// translator only knows pgx, so lib/pq errors are checked directly.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
