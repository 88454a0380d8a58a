package domain

import "testing"

func TestGradeForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  Grade
	}{
		{100, GradeA},
		{85, GradeA},
		{84, GradeB},
		{70, GradeB},
		{69, GradeC},
		{55, GradeC},
		{54, GradeRejected},
		{0, GradeRejected},
	}
	for _, tc := range cases {
		if got := GradeForScore(tc.score); got != tc.want {
			t.Fatalf("GradeForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestQualityScoreFromDamage(t *testing.T) {
	if got := QualityScoreFromDamage(30); got != 70 {
		t.Fatalf("expected 70, got %d", got)
	}
	if got := QualityScoreFromDamage(0); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if got := QualityScoreFromDamage(120); got != 0 {
		t.Fatalf("out-of-range damage must floor at 0, got %d", got)
	}
}

func TestDamageLabel(t *testing.T) {
	if got := DamageLabel(50); got != "fresh" {
		t.Fatalf("damage 50 should remain fresh, got %s", got)
	}
	if got := DamageLabel(51); got != "rotten" {
		t.Fatalf("damage 51 should be rotten, got %s", got)
	}
}

func TestStageOrder(t *testing.T) {
	if StageFarm.Order() != 0 || StageDistribution.Order() != 1 || StageRetail.Order() != 2 {
		t.Fatalf("unexpected stage ordering: %d %d %d",
			StageFarm.Order(), StageDistribution.Order(), StageRetail.Order())
	}
	if Stage("warehouse").Order() != -1 {
		t.Fatalf("unknown stage must order as -1")
	}
}
