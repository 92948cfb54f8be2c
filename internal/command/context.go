package command

import (
	"github.com/spf13/cobra"

	"github.com/goforj/favorites"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Fav      *favorites.Favorites
	JSONMode bool
}

// GetContext opens the sqlite-backed favorites handle for a command. The
// caller owns the handle and must Close it.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	table, _ := cmd.Flags().GetString("table")
	jsonMode, _ := cmd.Flags().GetBool("json")

	fav, err := favorites.Open(cmd.Context(), favorites.StoreConfig{
		Driver: favorites.DriverSQLite,
		Path:   dbPath,
		Table:  table,
	})
	if err != nil {
		return nil, err
	}

	return &CommandContext{Fav: fav, JSONMode: jsonMode}, nil
}
