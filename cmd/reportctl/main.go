package main

// Render, inspect and share bone analysis reports from the command line:
//   go run ./cmd/reportctl render --in report.json --out report.pdf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"boneai-backend/internal/bootstrap"
	"boneai-backend/internal/prompts"
	"boneai-backend/internal/report"
	"boneai-backend/internal/share"
	"boneai-backend/internal/shared/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Render, inspect and share bone analysis reports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(renderCmd())
	root.AddCommand(inspectCmd())
	root.AddCommand(shareCmd())
	root.AddCommand(tasksCmd())
	return root
}

func renderCmd() *cobra.Command {
	var in, out string
	var imageTimeout time.Duration
	var imageHosts []string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a JSON report into a PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := readReport(in)
			if err != nil {
				return err
			}
			hosts := append(bootstrap.ReportImageHosts(config.Load()), imageHosts...)
			doc, err := report.NewRenderer(imageTimeout, hosts...).RenderDocument(cmd.Context(), r)
			if err != nil {
				return err
			}
			if out == "" {
				out = report.FileName(r.Title, r.Timestamp)
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, doc.Bytes, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", out, doc.PageCount)
			if doc.ImageMissing {
				fmt.Fprintln(cmd.OutOrStdout(), "warning: report image could not be loaded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "path to the JSON report (- for stdin)")
	cmd.Flags().StringVar(&out, "out", "", "output PDF path (defaults to the report file name)")
	cmd.Flags().DurationVar(&imageTimeout, "image-timeout", report.DefaultImageTimeout, "how long to wait for the report image")
	cmd.Flags().StringSliceVar(&imageHosts, "image-host", nil, "extra host the report image may be fetched from (repeatable)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func inspectCmd() *cobra.Command {
	var withText bool
	cmd := &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Validate a PDF and print its page count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pages, err := report.Inspect(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pages: %d\n", pages)
			if withText {
				text, err := report.ExtractText(data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withText, "text", false, "also print the extracted text")
	return cmd
}

func shareCmd() *cobra.Command {
	var in, to, subject, note, analysisType string
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Render a JSON report and email it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !share.ValidRecipient(to) {
				return share.ErrInvalidRecipient
			}
			r, err := readReport(in)
			if err != nil {
				return err
			}
			cfg := config.Load()
			sender, err := bootstrap.BuildMailSender(cfg)
			if err != nil {
				return err
			}
			pdf, err := report.NewRenderer(cfg.ReportImageTimeout, bootstrap.ReportImageHosts(cfg)...).Render(cmd.Context(), r)
			if err != nil {
				return err
			}
			if analysisType == "" {
				analysisType = r.Title
			}
			relay := &share.Relay{Sender: sender, From: cfg.MailFrom}
			if err := relay.Share(cmd.Context(), share.Request{
				To:           to,
				Subject:      subject,
				Note:         note,
				AnalysisType: analysisType,
				Timestamp:    r.Timestamp,
				Report:       pdf,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", report.AttachmentName(analysisType, r.Timestamp), to)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "path to the JSON report (- for stdin)")
	cmd.Flags().StringVar(&to, "to", "", "recipient email address")
	cmd.Flags().StringVar(&subject, "subject", "", "email subject")
	cmd.Flags().StringVar(&note, "note", "", "note embedded in the email body")
	cmd.Flags().StringVar(&analysisType, "type", "", "analysis type used in the attachment name")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List analysis tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range prompts.Tasks() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", t.ID, t.Title)
			}
			return nil
		},
	}

	var role string
	promptCmd := &cobra.Command{
		Use:   "prompt <task-id>",
		Short: "Print the prompt sent for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), prompts.GetPrompt(args[0], prompts.ParseRole(role)))
			return nil
		},
	}
	promptCmd.Flags().StringVar(&role, "role", "common", "requester role: common or doctor")
	cmd.AddCommand(promptCmd)
	return cmd
}

func readReport(path string) (report.Report, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return report.Report{}, err
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return report.Report{}, fmt.Errorf("parse report %s: %w", path, err)
	}
	if len(r.Sections) == 0 {
		return report.Report{}, fmt.Errorf("report %s has no sections", path)
	}
	return r, nil
}
