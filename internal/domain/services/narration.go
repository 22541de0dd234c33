package services

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces/services"
)

// CelebratoryRoast is returned when a scan finds nothing
const CelebratoryRoast = "🎉 Congrats! Your code is cleaner than a whistle in a sanitization factory. " +
	"No vulnerabilities found - you actually read the security docs!"

// RoastTier is the worst severity class present in a finding list
type RoastTier string

// Roast tiers, worst first
const (
	TierCritical RoastTier = "critical"
	TierHigh     RoastTier = "high"
	TierGeneral  RoastTier = "general"
)

// roastTemplates holds the variants per tier; each takes exactly one count
var roastTemplates = map[RoastTier][]string{
	TierCritical: {
		"🚨 Found %d critical issue(s)! Your code is leaking secrets like a sieve in a rainstorm. " +
			"Even script kiddies would have a field day with this.",
		"🚨 %d critical issue(s) detected. This repo is less a codebase and more a welcome mat for attackers. " +
			"Rotate, revoke and repent before lunch.",
		"🔥 %d critical problem(s) on the board. Somewhere a pentester just felt a disturbance in the force. " +
			"Drop everything and fix these first.",
	},
	TierHigh: {
		"⚠️ Detected %d high-severity issue(s). Your security practices need serious work. " +
			"Time to crack open those OWASP Top 10 docs!",
		"⚠️ %d high-severity issue(s) found. Nothing is on fire yet, but you are definitely holding the matches. " +
			"Patch these before they become incidents.",
		"😬 %d high-severity finding(s). The code works, which is exactly what an attacker needs too. " +
			"Give these some love this sprint.",
	},
	TierGeneral: {
		"Found %d security issue(s). Nothing catastrophic, but you're not winning any security awards either. " +
			"Clean this up before someone less friendly finds it.",
		"%d minor security issue(s) spotted. It's the digital equivalent of leaving a window cracked open. " +
			"Close it while it's still cheap.",
		"Spotted %d security issue(s). Mostly paper cuts, but paper cuts add up. " +
			"A quick cleanup pass will do wonders.",
	},
}

// RoastTemplates returns the template variants for tier
func RoastTemplates(tier RoastTier) []string {
	return append([]string(nil), roastTemplates[tier]...)
}

// ClassifyTier picks the tier of the worst severity present and the count it reports
func ClassifyTier(counts entities.SeverityCounts) (RoastTier, int) {
	switch {
	case counts.Critical > 0:
		return TierCritical, counts.Critical
	case counts.High > 0:
		return TierHigh, counts.High
	default:
		return TierGeneral, counts.Total
	}
}

// FallbackNarrator is the deterministic, dependency-free narrator
type FallbackNarrator struct {
	security services.SecurityService
	pick     func(n int) int
}

// NewFallbackNarrator creates the fallback narrator.
// pick selects a template variant in [0,n); nil uses math/rand.
func NewFallbackNarrator(security services.SecurityService, pick func(n int) int) *FallbackNarrator {
	if pick == nil {
		pick = rand.Intn
	}
	return &FallbackNarrator{security: security, pick: pick}
}

// Narrate generates a rule-based roast and the static fix list
func (n *FallbackNarrator) Narrate(_ context.Context, findings []entities.Finding) (string, []entities.SuggestedFix) {
	if len(findings) == 0 {
		return CelebratoryRoast, []entities.SuggestedFix{}
	}

	tier, count := ClassifyTier(n.security.CountBySeverity(findings))
	variants := roastTemplates[tier]

	idx := n.pick(len(variants))
	if idx < 0 || idx >= len(variants) {
		idx = 0
	}

	return fmt.Sprintf(variants[idx], count), n.security.SuggestFixes(findings)
}

// SuggestFixes exposes the static fix list for remote narrators that need to backfill
func (n *FallbackNarrator) SuggestFixes(findings []entities.Finding) []entities.SuggestedFix {
	return n.security.SuggestFixes(findings)
}
