package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/config"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/storage"
	"github.com/forgecomply/forgecomply360/internal/testutil"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	fx     *testutil.Fixture
	now    time.Time
	events *recordingDispatcher

	auditRepo    repository.AuditRepository
	poamRepo     repository.POAMRepository
	evidenceRepo repository.EvidenceRepository
	checkRepo    repository.MonitoringRepository

	audit           *AuditService
	auth            *AuthService
	users           *UserService
	systems         *SystemService
	implementations *ImplementationService
	poams           *POAMService
	evidence        *EvidenceService
	policies        *PolicyService
	approvals       *ApprovalService
	monitoring      *MonitoringService
	dashboard       *DashboardService
	calendar        *CalendarService
	sweep           *SweepService
}

var harnessNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDatabase(t)
	fx := testutil.Seed(t, db)
	clock := Clock(testutil.FixedClock(harnessNow))
	logger := zap.NewNop()
	dispatcher := &recordingDispatcher{}

	h := db.Handle()
	orgRepo := repository.NewOrganizationRepository(h)
	userRepo := repository.NewUserRepository(h)
	auditRepo := repository.NewAuditRepository(h)
	controlRepo := repository.NewControlRepository(h)
	systemRepo := repository.NewSystemRepository(h)
	implRepo := repository.NewImplementationRepository(h)
	poamRepo := repository.NewPOAMRepository(h)
	evidenceRepo := repository.NewEvidenceRepository(h)
	policyRepo := repository.NewPolicyRepository(h)
	approvalRepo := repository.NewApprovalRepository(h)
	checkRepo := repository.NewMonitoringRepository(h)

	blobs, err := storage.NewBlobStore(t.TempDir(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	audit := NewAuditService(auditRepo, logger, clock)
	poams := NewPOAMService(POAMDependencies{
		POAMRepo: poamRepo, SystemRepo: systemRepo, ControlRepo: controlRepo,
		Audit: audit, Dispatcher: dispatcher, Clock: clock,
	})
	policies := NewPolicyService(PolicyDependencies{
		PolicyRepo: policyRepo, ApprovalRepo: approvalRepo,
		Audit: audit, Dispatcher: dispatcher, Clock: clock,
	})

	return &harness{
		fx:           fx,
		now:          harnessNow,
		events:       dispatcher,
		auditRepo:    auditRepo,
		poamRepo:     poamRepo,
		evidenceRepo: evidenceRepo,
		checkRepo:    checkRepo,
		audit:        audit,
		auth: NewAuthService(config.AuthConfig{
			JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4,
			MaxFailedLogins: 3, LockoutMinutes: 15,
		}, AuthDependencies{
			OrgRepo: orgRepo, UserRepo: userRepo, Tokens: auth.NewTokenManager("test-secret", 60),
			Audit: audit, Dispatcher: dispatcher, Logger: logger, Clock: clock,
		}),
		users: NewUserService(UserDependencies{
			UserRepo: userRepo, Audit: audit, Dispatcher: dispatcher, Clock: clock, BcryptCost: 4,
		}),
		systems: NewSystemService(SystemDependencies{
			SystemRepo: systemRepo, ImplementationRepo: implRepo, ControlRepo: controlRepo, Audit: audit, Clock: clock,
		}),
		implementations: NewImplementationService(ImplementationDependencies{
			ImplementationRepo: implRepo, SystemRepo: systemRepo, ControlRepo: controlRepo, Audit: audit, Clock: clock,
		}),
		poams: poams,
		evidence: NewEvidenceService(EvidenceDependencies{
			EvidenceRepo: evidenceRepo, ImplementationRepo: implRepo, Blobs: blobs, Audit: audit, Logger: logger, Clock: clock,
		}),
		policies: policies,
		approvals: NewApprovalService(ApprovalDependencies{
			ApprovalRepo: approvalRepo, Tx: repository.NewTxRunner(h), POAMService: poams, PolicyService: policies,
			Audit: audit, Dispatcher: dispatcher, Clock: clock,
		}),
		monitoring: NewMonitoringService(MonitoringDependencies{
			MonitoringRepo: checkRepo, SystemRepo: systemRepo, ImplementationRepo: implRepo, Audit: audit, Clock: clock,
		}),
		dashboard: NewDashboardService(DashboardDependencies{
			SystemRepo: systemRepo, ControlRepo: controlRepo, ImplementationRepo: implRepo, POAMRepo: poamRepo,
			EvidenceRepo: evidenceRepo, PolicyRepo: policyRepo, ApprovalRepo: approvalRepo, MonitoringRepo: checkRepo,
			Audit: audit, Logger: logger, Clock: clock,
		}),
		calendar: NewCalendarService(CalendarDependencies{
			POAMRepo: poamRepo, PolicyRepo: policyRepo, EvidenceRepo: evidenceRepo,
			MonitoringRepo: checkRepo, SystemRepo: systemRepo, Clock: clock,
		}),
		sweep: NewSweepService(SweepDependencies{
			EvidenceRepo: evidenceRepo, MonitoringRepo: checkRepo, POAMRepo: poamRepo,
			Dispatcher: dispatcher, Logger: logger, Clock: clock,
		}),
	}
}

func (h *harness) actor(role domain.Role) domain.Actor {
	return h.fx.Actor(role)
}

// openPOAM creates a POA&M on a fresh system and moves it to open.
func (h *harness) openPOAM(t *testing.T, title string) *domain.POAM {
	t.Helper()
	ctx := context.Background()
	sys := h.fx.System(t, "System for "+title, false)
	analyst := h.actor(domain.RoleAnalyst)
	poam, err := h.poams.Create(ctx, analyst, POAMInput{SystemID: &sys.ID, Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	poam, err = h.poams.ChangeStatus(ctx, analyst, poam.ID, domain.POAMStatusOpen)
	if err != nil {
		t.Fatal(err)
	}
	return poam
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return apperrors.ToDomainError(err).Code
}
