package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

func TestEvidenceUploadAndDownload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	analyst := h.actor(domain.RoleAnalyst)
	body := "firewall ruleset export"

	ev, err := h.evidence.Upload(ctx, analyst, EvidenceUpload{
		FileName: "../../rules.txt",
		MimeType: "text/plain",
		Body:     strings.NewReader(body),
	})
	require.NoError(t, err)
	assert.Equal(t, "rules.txt", ev.FileName, "path components are stripped")
	assert.Equal(t, "rules.txt", ev.Title, "title defaults to the file name")
	assert.Equal(t, int64(len(body)), ev.SizeBytes)
	sum := sha256.Sum256([]byte(body))
	assert.Equal(t, hex.EncodeToString(sum[:]), ev.SHA256)
	assert.Equal(t, domain.EvidenceActive, ev.Status)

	_, rc, err := h.evidence.Open(ctx, h.actor(domain.RoleViewer), ev.ID)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestEvidenceUploadValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	analyst := h.actor(domain.RoleAnalyst)

	_, err := h.evidence.Upload(ctx, analyst, EvidenceUpload{Title: "no file", Body: strings.NewReader("x")})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))

	past := h.now.AddDate(0, 0, -1)
	_, err = h.evidence.Upload(ctx, analyst, EvidenceUpload{FileName: "a.txt", ExpiresAt: &past, Body: strings.NewReader("x")})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))

	_, err = h.evidence.Upload(ctx, analyst, EvidenceUpload{FileName: "big.bin", Body: strings.NewReader(strings.Repeat("a", 2048))})
	assert.Equal(t, "PAYLOAD_TOO_LARGE", errorCode(err))
}

func TestEvidenceLinkAndArchive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	analyst := h.actor(domain.RoleAnalyst)
	sys := h.fx.System(t, "Mail", false)
	control := h.fx.Controls(t, "SI-4")[0]
	impl, err := h.implementations.Upsert(ctx, analyst, sys.ID, control.ID, ImplementationInput{Status: domain.ImplImplemented})
	require.NoError(t, err)

	ev, err := h.evidence.Upload(ctx, analyst, EvidenceUpload{FileName: "siem.png", Body: strings.NewReader("png")})
	require.NoError(t, err)

	require.NoError(t, h.evidence.Link(ctx, analyst, ev.ID, impl.ID))
	require.NoError(t, h.evidence.Link(ctx, analyst, ev.ID, impl.ID), "linking twice is a no-op")

	err = h.evidence.Link(ctx, analyst, ev.ID, "missing-implementation")
	assert.Equal(t, "NOT_FOUND", errorCode(err))

	full, err := h.evidence.Get(ctx, analyst, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{impl.ID}, full.LinkedImplementationIDs)

	require.NoError(t, h.evidence.Unlink(ctx, analyst, ev.ID, impl.ID))
	err = h.evidence.Unlink(ctx, analyst, ev.ID, impl.ID)
	assert.Equal(t, "NOT_FOUND", errorCode(err))

	archived, err := h.evidence.Archive(ctx, analyst, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EvidenceArchived, archived.Status)

	title := "renamed"
	_, err = h.evidence.Update(ctx, analyst, ev.ID, EvidenceUpdate{Title: &title})
	assert.Equal(t, "CONFLICT", errorCode(err))
	assert.Equal(t, "CONFLICT", errorCode(h.evidence.Link(ctx, analyst, ev.ID, impl.ID)))
}
