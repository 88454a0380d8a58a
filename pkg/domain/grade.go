package domain

import "github.com/shopspring/decimal"

// Grade is the four-tier quality classification derived from a numeric score.
type Grade string

// Grade tiers. GradeUnknown marks a product not yet assessed.
const (
	GradeUnknown  Grade = ""
	GradeA        Grade = "A"
	GradeB        Grade = "B"
	GradeC        Grade = "C"
	GradeRejected Grade = "rejected"
)

// Fixed grading thresholds and limits shared by every assessment path.
const (
	MaxQualityScore = 100

	gradeAThreshold = 85
	gradeBThreshold = 70
	gradeCThreshold = 55

	// DamageRejectThreshold forces rejection regardless of the derived grade.
	DamageRejectThreshold = 75
	// DamageRottenThreshold splits the binary fresh/rotten label.
	DamageRottenThreshold = 50
)

// MinSafeTemperature is the cold-chain floor; readings below it reject the
// product regardless of score.
var MinSafeTemperature = decimal.NewFromInt(5)

// GradeForScore maps a quality score to its grade tier.
func GradeForScore(score int) Grade {
	switch {
	case score >= gradeAThreshold:
		return GradeA
	case score >= gradeBThreshold:
		return GradeB
	case score >= gradeCThreshold:
		return GradeC
	default:
		return GradeRejected
	}
}

// QualityScoreFromDamage converts an ML damage score into a quality score,
// floored at zero for out-of-range damage values.
func QualityScoreFromDamage(damageScore int) int {
	if damageScore > MaxQualityScore {
		return 0
	}
	return MaxQualityScore - damageScore
}

// DamageLabel derives the binary classification for a damage score.
func DamageLabel(damageScore int) string {
	if damageScore > DamageRottenThreshold {
		return "rotten"
	}
	return "fresh"
}
