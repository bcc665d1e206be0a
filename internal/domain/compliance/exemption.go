package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExemptionType identifies which §3.803 registration exemption applies.
type ExemptionType string

const (
	ExemptionHoursThreshold      ExemptionType = "HOURS_THRESHOLD"
	ExemptionNewsMedia           ExemptionType = "NEWS_MEDIA"
	ExemptionGovernmentOfficial  ExemptionType = "GOVERNMENT_OFFICIAL"
	ExemptionPublicTestimonyOnly ExemptionType = "PUBLIC_TESTIMONY_ONLY"
	ExemptionCountyRequest       ExemptionType = "COUNTY_REQUEST"
	ExemptionAdvisoryCommittee   ExemptionType = "ADVISORY_COMMITTEE"
	ExemptionNone                ExemptionType = "NONE"
)

// ExemptionFacts are the declared circumstances an exemption check runs
// against.
type ExemptionFacts struct {
	QuarterHours              decimal.Decimal
	NewsMedia                 bool
	GovernmentOfficial        bool
	PublicTestimonyOnly       bool
	RespondingToCountyRequest bool
	AdvisoryCommitteeMember   bool
}

// ExemptionResult is the outcome of an exemption check. When no exemption
// applies, MustRegister is true and RegistrationDeadline carries the last
// working day to register.
type ExemptionResult struct {
	Exempt               bool
	Type                 ExemptionType
	Reason               string
	MustRegister         bool
	RegistrationDeadline *time.Time
}

// CheckExemption evaluates the §3.803 exemptions in order of specificity:
// hours at or below the threshold first, then the categorical exemptions.
// The first matching exemption wins; when none match, the registration
// deadline is the policy's working-day count from now.
func (p ThresholdPolicy) CheckExemption(facts ExemptionFacts, now time.Time) ExemptionResult {
	exempt := func(t ExemptionType, reason string) ExemptionResult {
		return ExemptionResult{Exempt: true, Type: t, Reason: reason}
	}

	switch {
	case facts.QuarterHours.LessThanOrEqual(p.Hours):
		return exempt(ExemptionHoursThreshold,
			"exempt from registration: at or below the threshold hours per quarter on lobbying activities, excluding travel time")
	case facts.NewsMedia:
		return exempt(ExemptionNewsMedia,
			"exempt from registration: news media engaged in publishing or broadcasting news")
	case facts.GovernmentOfficial:
		return exempt(ExemptionGovernmentOfficial,
			"exempt from registration: government official acting in official capacity")
	case facts.PublicTestimonyOnly:
		return exempt(ExemptionPublicTestimonyOnly,
			"exempt from registration: only provides public testimony, no other lobbying activities")
	case facts.RespondingToCountyRequest:
		return exempt(ExemptionCountyRequest,
			"exempt from registration: responding to a direct request from the county")
	case facts.AdvisoryCommitteeMember:
		return exempt(ExemptionAdvisoryCommittee,
			"exempt from registration: participant in an advisory committee, commission, or workgroup")
	}

	deadline := AddWorkingDays(now, p.RegistrationWorkingDays)
	return ExemptionResult{
		Type:                 ExemptionNone,
		Reason:               "must register: more than the threshold hours per quarter on lobbying activities and no exemptions apply",
		MustRegister:         true,
		RegistrationDeadline: &deadline,
	}
}
