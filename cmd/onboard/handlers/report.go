package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/onboard/internal/report"
	"github.com/imamik/onboard/internal/state"
)

// ReportOptions holds the flags of the report command.
type ReportOptions struct {
	GlobalOptions
	Stdout   bool
	NoUpload bool
	List     bool
}

// Report renders the saved state into a Markdown report. It never changes state.
func Report(ctx context.Context, opts ReportOptions) error {
	s, err := openSession(opts.GlobalOptions, false)
	if err != nil {
		return err
	}
	if opts.List {
		return listReports(ctx, s)
	}

	st, err := s.store.Load()
	if err != nil && !errors.Is(err, state.ErrNoState) {
		return err
	}

	meta := s.reportMeta(false)
	if opts.Stdout {
		fmt.Print(report.New(s.registry, s.cfg.Node.Name).Markdown(st, meta))
		return nil
	}
	_, err = s.writeReport(ctx, st, meta, !opts.NoUpload)
	return err
}

func (s *session) reportMeta(dryRun bool) report.Meta {
	return report.Meta{
		Node:        s.cfg.Node.Name,
		RunID:       s.log.RunID(),
		GeneratedAt: now(),
		StatePath:   s.store.Path(),
		LogFile:     s.log.FilePath(),
		DryRun:      dryRun,
	}
}

// writeReport writes the report under report_dir and, when report.s3 is
// configured and upload is set, publishes it. A failed upload is returned
// after the local file has been written.
func (s *session) writeReport(ctx context.Context, st *state.OnboardingState, meta report.Meta, upload bool) (string, error) {
	content := report.New(s.registry, s.cfg.Node.Name).Markdown(st, meta)
	path, err := report.Write(s.cfg.ReportPath(), s.cfg.Node.Name, meta.GeneratedAt, content)
	if err != nil {
		return "", err
	}
	fmt.Printf("Report written to %s\n", path)
	s.log.Logr().Info("report written", "path", path)

	s3cfg := s.cfg.Report.S3
	if !upload || s3cfg == nil {
		return path, nil
	}
	pub, err := newPublisher(ctx, s3cfg)
	if err != nil {
		return path, fmt.Errorf("failed to create report uploader: %w", err)
	}
	loc, err := report.Publish(ctx, pub, s3cfg.Prefix, path)
	if err != nil {
		return path, err
	}
	fmt.Printf("Report uploaded to %s\n", loc)
	s.log.Logr().Info("report uploaded", "location", loc)
	return path, nil
}

func listReports(ctx context.Context, s *session) error {
	s3cfg := s.cfg.Report.S3
	if s3cfg == nil {
		return fmt.Errorf("report.s3 is not configured")
	}
	pub, err := newPublisher(ctx, s3cfg)
	if err != nil {
		return fmt.Errorf("failed to create report uploader: %w", err)
	}
	keys, err := pub.List(ctx, s3cfg.Prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Printf("No reports under s3://%s/%s\n", s3cfg.Bucket, s3cfg.Prefix)
		return nil
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}
