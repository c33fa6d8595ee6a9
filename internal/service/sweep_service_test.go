package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/testutil"
)

type sweepCounts map[string]int

func (c sweepCounts) RecordSweep(kind string, n int) { c[kind] += n }

func TestSweepAnnouncesEachItemOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	analyst := h.actor(domain.RoleAnalyst)

	expiry := h.now.AddDate(0, 0, 1)
	ev, err := h.evidence.Upload(ctx, analyst, EvidenceUpload{FileName: "scan.pdf", ExpiresAt: &expiry, Body: strings.NewReader("pdf")})
	require.NoError(t, err)

	name := "Review admin accounts"
	nextRun := h.now.AddDate(0, 0, -1)
	daily := domain.FrequencyDaily
	check, err := h.monitoring.Create(ctx, analyst, CheckInput{Name: &name, Frequency: &daily, NextRunAt: &nextRun})
	require.NoError(t, err)

	poam := h.openPOAM(t, "Overdue fix")
	due := h.now.AddDate(0, 0, -1)
	_, err = h.poams.Update(ctx, analyst, poam.ID, POAMInput{ScheduledCompletion: &due})
	require.NoError(t, err)

	counts := sweepCounts{}
	h.sweep.metrics = counts
	h.sweep.clock = Clock(testutil.FixedClock(h.now.AddDate(0, 0, 2)))

	result, err := h.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{EvidenceExpired: 1, ChecksDue: 1, POAMsOverdue: 1}, result)
	assert.Equal(t, 1, counts["evidence_expired"])

	require.Len(t, h.events.ofType(events.EventEvidenceExpired), 1)
	assert.Equal(t, ev.ID, h.events.ofType(events.EventEvidenceExpired)[0].ResourceID)
	require.Len(t, h.events.ofType(events.EventCheckDue), 1)
	assert.Equal(t, check.ID, h.events.ofType(events.EventCheckDue)[0].ResourceID)
	require.Len(t, h.events.ofType(events.EventPOAMOverdue), 1)

	stored, err := h.evidence.Get(ctx, analyst, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EvidenceExpired, stored.Status)

	again, err := h.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, again, "a second pass finds nothing new")
}

func TestRecordResultReschedules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	analyst := h.actor(domain.RoleAnalyst)

	name := "Vulnerability scan"
	weekly := domain.FrequencyWeekly
	past := h.now.AddDate(0, 0, -2)
	check, err := h.monitoring.Create(ctx, analyst, CheckInput{Name: &name, Frequency: &weekly, NextRunAt: &past})
	require.NoError(t, err)
	assert.Equal(t, domain.CheckNotRun, check.LastResult)

	dueNow, err := h.monitoring.Due(ctx, analyst)
	require.NoError(t, err)
	require.Len(t, dueNow, 1)

	_, err = h.monitoring.RecordResult(ctx, analyst, check.ID, domain.CheckNotRun, "")
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))

	run, err := h.monitoring.RecordResult(ctx, analyst, check.ID, domain.CheckFail, "3 criticals")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckFail, run.Result)

	updated, err := h.monitoring.Get(ctx, analyst, check.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckFail, updated.LastResult)
	assert.True(t, updated.NextRunAt.Equal(h.now.AddDate(0, 0, 7)))

	dueNow, err = h.monitoring.Due(ctx, analyst)
	require.NoError(t, err)
	assert.Empty(t, dueNow)

	inactive := false
	_, err = h.monitoring.Update(ctx, analyst, check.ID, CheckInput{Active: &inactive})
	require.NoError(t, err)
	_, err = h.monitoring.RecordResult(ctx, analyst, check.ID, domain.CheckPass, "")
	assert.Equal(t, "CONFLICT", errorCode(err))
}

func TestMonitoringCreateDefaults(t *testing.T) {
	h := newHarness(t)
	name := "Backup restore test"
	check, err := h.monitoring.Create(context.Background(), h.actor(domain.RoleAnalyst), CheckInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyMonthly, check.Frequency)
	assert.True(t, check.Active)
	assert.True(t, check.NextRunAt.Equal(h.now.AddDate(0, 1, 0)))
}
