// Package scaffold lays out a new ProjectHub working directory.
package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dyluth/projecthub/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// UploadsDir is the attachments directory created next to the config.
const UploadsDir = "uploads"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes projecthub.yml and the uploads directory into dir.
// With force, an existing config is replaced; stored attachments are kept.
// Progress notes go to out.
func Initialize(dir string, force bool, out io.Writer) error {
	if force {
		if err := handleForce(dir, out); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return err
	}

	if err := createDirectories(dir); err != nil {
		return err
	}

	if err := writeFiles(dir, files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

func handleForce(dir string, out io.Writer) error {
	cfgPath := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Fprintf(out, "⚠️  Removing existing %s...\n", config.DefaultPath)
		if err := os.Remove(cfgPath); err != nil {
			return fmt.Errorf("failed to remove %s: %w", config.DefaultPath, err)
		}
	}
	return nil
}

func getTemplateFiles() ([]FileInfo, error) {
	cfg, err := templatesFS.ReadFile("templates/projecthub.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", config.DefaultPath, err)
	}
	return []FileInfo{
		{Path: config.DefaultPath, Content: cfg, Permissions: 0644},
	}, nil
}

func createDirectories(dir string) error {
	path := filepath.Join(dir, UploadsDir)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

func writeFiles(dir string, files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(dir, file.Path), file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads the written config the way serve will.
func validateCreatedFiles(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, config.DefaultPath))
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", config.DefaultPath, err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", config.DefaultPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}
	return nil
}

// PrintSuccess lists what init created and what to do next.
func PrintSuccess(out io.Writer) {
	fmt.Fprintln(out, "\n✅ Successfully initialized ProjectHub!")
	fmt.Fprintln(out, "\nCreated:")
	fmt.Fprintf(out, "  ✓ %s\n", config.DefaultPath)
	fmt.Fprintf(out, "  ✓ %s/\n", UploadsDir)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Add 'projecthub.db*' and 'uploads/' to your .gitignore file")
	fmt.Fprintln(out, "  2. Start Redis, then run 'projecthub migrate' and 'projecthub seed'")
	fmt.Fprintln(out, "  3. Run 'projecthub serve' and sign in as admin@example.com / password123")
}
