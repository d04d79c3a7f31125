// Package verify provides read-only end-state checks that compare the
// machine against a profile. The verifier never mutates anything; it
// only probes and reports.
package verify

import "fmt"

// Area identifies the part of the profile a finding belongs to.
type Area string

const (
	AreaManagers Area = "managers"
	AreaPackages Area = "packages"
	AreaApps     Area = "apps"
	AreaFonts    Area = "fonts"
	AreaGit      Area = "git"
	AreaSSH      Area = "ssh"
	AreaEditor   Area = "editor"
	AreaRepos    Area = "repos"
	AreaVersions Area = "versions"
)

// Outcome classifies a single check.
type Outcome string

const (
	// Pass means the machine matches the profile.
	Pass Outcome = "pass"
	// Fail means the machine diverges from the profile.
	Fail Outcome = "fail"
	// Unknown means the check could not be answered, for example
	// because a probe command failed.
	Unknown Outcome = "unknown"
)

// Finding is the result of one check.
type Finding struct {
	Area    Area
	Subject string
	Outcome Outcome
	Detail  string
}

// Failed returns true if the finding is a divergence.
func (f Finding) Failed() bool {
	return f.Outcome == Fail
}

// String renders the finding as a single line.
func (f Finding) String() string {
	if f.Detail == "" {
		return fmt.Sprintf("[%s] %s: %s", f.Area, f.Subject, f.Outcome)
	}
	return fmt.Sprintf("[%s] %s: %s (%s)", f.Area, f.Subject, f.Outcome, f.Detail)
}

// Report aggregates the findings of a verification run.
type Report struct {
	findings []Finding
}

func (r *Report) add(area Area, subject string, outcome Outcome, detail string) {
	r.findings = append(r.findings, Finding{
		Area:    area,
		Subject: subject,
		Outcome: outcome,
		Detail:  detail,
	})
}

// Findings returns all findings in check order.
func (r *Report) Findings() []Finding {
	out := make([]Finding, len(r.findings))
	copy(out, r.findings)
	return out
}

// Failures returns only the findings that diverge from the profile.
func (r *Report) Failures() []Finding {
	var out []Finding
	for _, f := range r.findings {
		if f.Failed() {
			out = append(out, f)
		}
	}
	return out
}

// Counts returns the number of passed, failed and unanswerable checks.
func (r *Report) Counts() (pass, fail, unknown int) {
	for _, f := range r.findings {
		switch f.Outcome {
		case Pass:
			pass++
		case Fail:
			fail++
		case Unknown:
			unknown++
		}
	}
	return pass, fail, unknown
}

// Ok returns true if no check diverged. Unknown checks do not count
// as divergence.
func (r *Report) Ok() bool {
	_, fail, _ := r.Counts()
	return fail == 0
}
