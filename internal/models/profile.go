package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Profile is the candidate background used to personalize questions. It is
// maintained elsewhere; this service only reads it.
type Profile struct {
	UserID     string         `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	FullName   string         `gorm:"column:full_name;type:text" json:"full_name"`
	CVText     string         `gorm:"column:cv_text;type:text" json:"cv_text"`
	Skills     pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`
	Experience datatypes.JSON `gorm:"column:experience;type:jsonb" json:"experience"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// Summary condenses the profile into prompt context, capped at max runes.
func (p *Profile) Summary(max int) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	if len(p.Skills) > 0 {
		b.WriteString("Skills: ")
		b.WriteString(strings.Join(p.Skills, ", "))
		b.WriteString("\n")
	}
	if cv := strings.TrimSpace(p.CVText); cv != "" {
		b.WriteString("Resume: ")
		b.WriteString(cv)
	}
	out := []rune(b.String())
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return string(out)
}
