package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"KinneretSentinel/internal/content"
)

const helpText = "פקודות זמינות:\n• /level מפלס ומגמה נוכחיים\n• /status מצב הפרסום\n• /update משיכת נתונים עכשיו\n• /help"

// Scheduler runs the update and publish jobs on cron schedules.
type Scheduler struct {
	Cron   *cron.Cron
	Jobs   *Jobs
	Logger *slog.Logger
	Ctx    context.Context

	wg sync.WaitGroup // initial runs started by StartInitialRun
}

// NewScheduler creates a Scheduler with a seconds-aware cron parser.
// Overlapping runs of the same job are skipped.
func NewScheduler(ctx context.Context, jobs *Jobs, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		Jobs:   jobs,
		Logger: logger,
		Ctx:    ctx,
	}
}

// RegisterAll registers the update and publish jobs.
func (s *Scheduler) RegisterAll(updateCron, publishCron string) error {
	if _, err := s.Cron.AddFunc(updateCron, s.updateTask); err != nil {
		return fmt.Errorf("register update task: %w", err)
	}
	if _, err := s.Cron.AddFunc(publishCron, s.publishTask); err != nil {
		return fmt.Errorf("register publish task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs, including an initial run, to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.Logger.Info("scheduler stopped")
}

// RunOnStart runs an update followed by a publish attempt.
func (s *Scheduler) RunOnStart() {
	s.updateTask()
	s.publishTask()
}

// StartInitialRun runs RunOnStart in the background. Stop waits for it.
func (s *Scheduler) StartInitialRun() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunOnStart()
	}()
}

func (s *Scheduler) updateTask() {
	if _, err := s.Jobs.RunUpdate(s.Ctx); err != nil {
		s.Logger.Error("scheduled update failed", "error", err)
	}
}

func (s *Scheduler) publishTask() {
	// errors are logged and recorded by the job
	_, _ = s.Jobs.RunPublish(s.Ctx)
}

// HandleCommand processes a chat command and returns an HTML reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(strings.SplitN(command, "@", 2)[0]))
	switch cmd {
	case "/level", "/start":
		st, err := s.Jobs.Status(ctx)
		if err != nil {
			return fmt.Sprintf("❌ שגיאה בטעינת הנתונים: %v", err)
		}
		if st.Snapshot == nil {
			return "אין עדיין נתוני מפלס."
		}
		return content.FormatStatus(st.Snapshot, st.Watermark)
	case "/status":
		st, err := s.Jobs.Status(ctx)
		if err != nil {
			return fmt.Sprintf("❌ שגיאה בטעינת הנתונים: %v", err)
		}
		return formatPublicationStatus(st)
	case "/update":
		res, err := s.Jobs.RunUpdate(ctx)
		if err != nil {
			return fmt.Sprintf("❌ העדכון נכשל: %v", err)
		}
		return fmt.Sprintf("✅ עודכן: %d חדשות, %d נדחו, %d סה״כ", res.NewCount, len(res.Dropped), res.Total)
	default:
		return helpText
	}
}

func formatPublicationStatus(st *Status) string {
	var b strings.Builder
	b.WriteString("📋 <b>מצב פרסום</b>\n\n")
	if st.Watermark.IsSet() {
		fmt.Fprintf(&b, "פורסם לאחרונה: %s\n", st.Watermark)
	} else {
		b.WriteString("טרם פורסם\n")
	}
	if st.Latest != nil {
		fmt.Fprintf(&b, "מדידה אחרונה: %s\n", st.Latest.Date)
	}
	if p := st.LastPublication; p != nil {
		fmt.Fprintf(&b, "ריצה אחרונה: %s (%s)\n", p.State, p.At.Format("2006-01-02 15:04"))
		if p.Error != "" {
			fmt.Fprintf(&b, "שגיאה: %s\n", p.Error)
		}
	}
	return b.String()
}
