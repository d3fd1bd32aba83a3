package migrations

import (
	"context"
	"fmt"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000000, down_20261001000000)
}

// up_20261001000000 creates session_values, the server-side storage behind the session cookie
func up_20261001000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating session_values table...")

	_, err := db.NewCreateTable().
		Model((*models.SessionValue)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session_values table: %w", err)
	}

	if _, err := db.ExecContext(ctx, activityIndexDDL(db)); err != nil {
		return fmt.Errorf("failed to create session_values activity index: %w", err)
	}

	fmt.Println(" OK")
	return nil
}

// down_20261001000000 drops session_values
func down_20261001000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping session_values table...")

	_, err := db.NewDropTable().
		Model((*models.SessionValue)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop session_values table: %w", err)
	}

	fmt.Println(" OK")
	return nil
}
