package database

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"donamaha/models"

	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.RefreshToken{},
		&models.RevokedToken{},
		&models.Campaign{},
		&models.Donation{},
		&models.Payment{},
		&models.Report{},
		&models.LedgerEntry{},
	}
}

// Migrate runs AutoMigrate for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// BackupDatabase writes a mysqldump of the configured database to outPath.
// The password is passed through MYSQL_PWD so it does not show up in the
// process list.
func BackupDatabase(ctx context.Context, outPath string) error {
	if _, err := exec.LookPath("mysqldump"); err != nil {
		return fmt.Errorf("mysqldump not found in PATH: %w", err)
	}

	args := []string{
		"-h", getenv("DB_HOST", "127.0.0.1"),
		"-P", getenv("DB_PORT", "3306"),
		"-u", getenv("DB_USER", "root"),
		"--single-transaction",
		getenv("DB_NAME", "donamaha"),
	}
	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+getenv("DB_PASS", ""))
	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()
	cmd.Stdout = outFile
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysqldump failed: %w", err)
	}
	return nil
}
