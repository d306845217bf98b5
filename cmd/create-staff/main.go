package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/edupulse/schoolops-backend/internal/config"
	"github.com/edupulse/schoolops-backend/internal/database"
	"github.com/edupulse/schoolops-backend/internal/logger"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/edupulse/schoolops-backend/internal/service"
	"golang.org/x/term"
)

const minPasswordLen = 8

func main() {
	var name, email, roleFlag string
	flag.StringVar(&name, "name", "", "Display name (prompted when empty)")
	flag.StringVar(&email, "email", "", "Login email (prompted when empty)")
	flag.StringVar(&roleFlag, "role", "", "admin or teacher (prompted when empty)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Component(logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.Location()), "create-staff")

	// ─── Collect Account Details ───────────────────────────────────────
	in := bufio.NewReader(os.Stdin)
	fmt.Println("=== Create Staff Account ===")

	name = orPrompt(in, name, "Name")
	email = strings.ToLower(orPrompt(in, email, "Email"))
	if name == "" || !strings.Contains(email, "@") {
		exitf("a name and a valid email are required")
	}

	role := model.StaffRole(strings.ToLower(orPrompt(in, roleFlag, "Role [admin/teacher] (default teacher)")))
	if role == "" {
		role = model.StaffRoleTeacher
	}
	if role != model.StaffRoleAdmin && role != model.StaffRoleTeacher {
		exitf("role must be admin or teacher, got %q", role)
	}

	password := readPassword("Password")
	if len(password) < minPasswordLen {
		exitf("password must be at least %d characters", minPasswordLen)
	}
	if readPassword("Repeat password") != password {
		exitf("passwords do not match")
	}

	// ─── Create ────────────────────────────────────────────────────────
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, repository.NewPgStore(pool, cfg.Location()))
	staff, err := authService.CreateStaff(ctx, email, name, role, password)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			exitf("an account with email %s already exists", email)
		}
		log.Fatal().Err(err).Msg("Failed to create staff account")
	}

	log.Info().Int64("staff_id", staff.ID).Str("role", string(staff.Role)).Msg("Staff account created")
	fmt.Printf("\nCreated %s %q <%s> with ID %d\n", staff.Role, staff.Name, staff.Email, staff.ID)
}

// orPrompt returns value, or asks for it on stdin when empty.
func orPrompt(in *bufio.Reader, value, label string) string {
	if value != "" {
		return strings.TrimSpace(value)
	}
	fmt.Printf("%s: ", label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func readPassword(label string) string {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		exitf("read password: %v", err)
	}
	return string(raw)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
