package service

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/uniconhq/unicon-backend/config"
	"github.com/uniconhq/unicon-backend/pkg/logger"
)

type mailJob struct {
	to      string
	subject string
	body    string
	enqAt   time.Time
}

// Mailer is the fire-and-forget outbound email queue. Enqueue never blocks:
// a full queue drops the message with a warning, and send failures are
// logged without retry.
type Mailer struct {
	cfg  config.EmailConfig
	ch   chan mailJob
	send func(cfg config.EmailConfig, to, subject, body string) error
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1024
	}
	return &Mailer{cfg: cfg, ch: make(chan mailJob, size), send: sendSMTP}
}

// Start launches the worker goroutines and returns a stop function that
// lets the queue drain briefly before giving up.
func (m *Mailer) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-m.ch:
					if err := m.send(m.cfg, job.to, job.subject, job.body); err != nil {
						logger.Warn("email send failed",
							zap.String("to", job.to), zap.Error(err))
					}
				case <-stopCh:
					// Drain what is left before exiting.
					for {
						select {
						case job := <-m.ch:
							if err := m.send(m.cfg, job.to, job.subject, job.body); err != nil {
								logger.Warn("email send failed",
									zap.String("to", job.to), zap.Error(err))
							}
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-timeout:
				return nil
			default:
				if len(m.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

func (m *Mailer) Enqueue(to, subject, body string) {
	select {
	case m.ch <- mailJob{to: to, subject: subject, body: body, enqAt: time.Now()}:
	default:
		logger.Warn("mail queue full, drop message", zap.String("to", to))
	}
}

// QueueLen returns the current queue length (sampled).
func (m *Mailer) QueueLen() int { return len(m.ch) }

func sendSMTP(cfg config.EmailConfig, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		cfg.From, to, subject, body,
	))
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host)
	return smtp.SendMail(addr, auth, cfg.From, []string{to}, msg)
}
