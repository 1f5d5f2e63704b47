package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/tablecraft/recast/internal/castfn"
	"github.com/tablecraft/recast/internal/castmap"
	"github.com/tablecraft/recast/internal/catalog"
	"github.com/tablecraft/recast/internal/cli"
	"github.com/tablecraft/recast/internal/config"
	"github.com/tablecraft/recast/internal/ddl"
	"github.com/tablecraft/recast/internal/telemetry"
)

const cliVersion = "0.0.0-dev"

var validate = validator.New()

func main() {
	if err := run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	command := newAdminCommand()
	parsedArgs := []string{}
	if len(args) > 1 {
		parsedArgs = args[1:]
	}
	command.SetArgs(parsedArgs)
	return command.Execute()
}

func newAdminCommand() *cobra.Command {
	command := &cobra.Command{
		Use:          "recast-admin",
		Short:        "Recast column type-alteration admin CLI",
		Version:      cliVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	command.PersistentFlags().String("config", "", "path to recast-admin config file")
	command.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return cli.InitViperFromCommand(cmd, cli.ViperConfig{
			EnvPrefix:    "RECAST",
			ConfigEnvVar: "RECAST_ADMIN_CONFIG",
			ConfigName:   "recast-admin",
		})
	}

	typesCommand := &cobra.Command{
		Use:   "types",
		Short: "inspect the type catalog",
	}
	typesList := &cobra.Command{
		Use:   "list",
		Short: "list every type a column can be altered into",
		Args:  cobra.NoArgs,
		RunE:  typesListRun,
	}
	typesList.Flags().Bool("engine-names", false, "show engine-native names instead of friendly names")
	typesCommand.AddCommand(typesList)
	command.AddCommand(typesCommand)

	castmapCommand := &cobra.Command{
		Use:   "castmap",
		Short: "inspect the cast compatibility map",
	}
	castmapShow := &cobra.Command{
		Use:   "show",
		Short: "show legal alteration targets and their cast strategies",
		Args:  cobra.NoArgs,
		RunE:  castmapShowRun,
	}
	castmapShow.Flags().String("source", "", "limit output to one source type")
	castmapCommand.AddCommand(castmapShow)
	command.AddCommand(castmapCommand)

	columnCommand := &cobra.Command{
		Use:   "column",
		Short: "alter or preview column type changes",
	}
	columnAlter := &cobra.Command{
		Use:   "alter",
		Short: "change a column's type, rewriting stored data",
		Args:  cobra.NoArgs,
		RunE:  columnAlterRun,
	}
	addConnectionFlags(columnAlter)
	columnAlter.Flags().String("table", "", "target table, optionally schema-qualified")
	columnAlter.Flags().String("column", "", "column to alter")
	columnAlter.Flags().String("type", "", "target type (friendly or engine name)")
	columnAlter.Flags().Int("precision", 0, "numeric precision for the target type")
	columnAlter.Flags().Int("scale", 0, "numeric scale for the target type")
	columnCommand.AddCommand(columnAlter)

	columnPreview := &cobra.Command{
		Use:   "preview",
		Short: "preview casted values for stored rows without altering the table",
		Args:  cobra.NoArgs,
		RunE:  columnPreviewRun,
	}
	addConnectionFlags(columnPreview)
	columnPreview.Flags().String("table", "", "source table, optionally schema-qualified")
	columnPreview.Flags().String("defs", "", "path to a YAML file of target column definitions")
	columnCommand.AddCommand(columnPreview)
	command.AddCommand(columnCommand)

	functionsCommand := &cobra.Command{
		Use:   "functions",
		Short: "manage the custom cast function library",
	}
	functionsInstall := &cobra.Command{
		Use:   "install",
		Short: "install the cast function library into the engine",
		Args:  cobra.NoArgs,
		RunE:  functionsInstallRun,
	}
	addConnectionFlags(functionsInstall)
	functionsCommand.AddCommand(functionsInstall)
	command.AddCommand(functionsCommand)

	return command
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("dsn", "", "postgres connection string")
}

func typesListRun(cmd *cobra.Command, _ []string) error {
	engineNames, _ := cmd.Flags().GetBool("engine-names")

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"type", "category", "numeric options"})
	for _, t := range catalog.Default().Types() {
		name := t.FriendlyName()
		if engineNames {
			name = t.Name
		}
		tw.AppendRow(table.Row{name, string(t.Category), t.NumericOptions})
	}
	tw.Render()
	return nil
}

func castmapShowRun(cmd *cobra.Command, _ []string) error {
	source := cli.ResolveStringFlag(cmd, "source")
	m := castmap.Default()

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"source", "target", "strategy", "function"})
	for _, rule := range m.Rules() {
		if source != "" && !strings.EqualFold(rule.Source.FriendlyName(), source) &&
			!strings.EqualFold(rule.Source.Name, source) {
			continue
		}
		tw.AppendRow(table.Row{
			rule.Source.FriendlyName(),
			rule.Target.FriendlyName(),
			string(rule.Strategy.Kind),
			rule.Strategy.Function,
		})
	}
	tw.Render()
	return nil
}

type alterRequest struct {
	Table     string `validate:"required"`
	Column    string `validate:"required"`
	Type      string `validate:"required"`
	Precision *int   `validate:"omitempty,gt=0"`
	Scale     *int   `validate:"omitempty,gte=0"`
}

func columnAlterRun(cmd *cobra.Command, _ []string) error {
	precision, err := cli.ResolveIntFlagValue(cmd, "precision")
	if err != nil {
		return err
	}
	scale, err := cli.ResolveIntFlagValue(cmd, "scale")
	if err != nil {
		return err
	}
	request := alterRequest{
		Table:     cli.ResolveStringFlag(cmd, "table"),
		Column:    cli.ResolveStringFlag(cmd, "column"),
		Type:      cli.ResolveStringFlag(cmd, "type"),
		Precision: precision,
		Scale:     scale,
	}
	if err := validate.Struct(request); err != nil {
		return fmt.Errorf("invalid alter request: %w", err)
	}
	// Scale exceeding precision is deliberately not checked here; the engine
	// reports it as a parameter error.
	options := numericOptions(request.Precision, request.Scale)

	ctx := cmd.Context()
	cfg, pool, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	tracer := telemetry.Tracer(cfg.Telemetry.ServiceName)
	ctx, span := telemetry.StartOperation(ctx, tracer, "column_alter",
		attribute.String("table", request.Table),
		attribute.String("target_type", request.Type),
	)
	defer span.End()

	tableRef := tableRefWithDefault(cfg, request.Table)
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if cfg.DDL.LockTimeout > 0 {
		timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", cfg.DDL.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, timeout); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	column, err := ddl.ResolveColumn(ctx, tx, tableRef, request.Column)
	if err != nil {
		return err
	}
	if err := ddl.AlterColumnType(ctx, tx, castmap.Default(), tableRef, column, request.Type, options); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit alteration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "altered %s.%s: %s -> %s\n",
		tableRef, column.Name, column.Type, request.Type)
	return nil
}

func columnPreviewRun(cmd *cobra.Command, _ []string) error {
	tableName := cli.ResolveStringFlag(cmd, "table")
	defsPath := cli.ResolveStringFlag(cmd, "defs")
	if tableName == "" || defsPath == "" {
		return errors.New("both --table and --defs are required")
	}

	defs, err := loadColumnDefinitions(afero.NewOsFs(), defsPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, pool, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	records, err := ddl.ProjectRecords(ctx, pool, castmap.Default(), tableRefWithDefault(cfg, tableName), defs)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	header := make(table.Row, 0, len(defs))
	for _, def := range defs {
		header = append(header, def.Name)
	}
	tw.AppendHeader(header)
	for _, record := range records {
		row := make(table.Row, 0, len(defs))
		for _, def := range defs {
			row = append(row, record[def.Name])
		}
		tw.AppendRow(row)
	}
	tw.Render()
	return nil
}

func functionsInstallRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_, pool, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := castfn.Install(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit function install: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "cast function library installed")
	return nil
}

func connect(ctx context.Context, cmd *cobra.Command) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, nil, err
	}
	dsn := cli.ResolveStringFlag(cmd, "dsn")
	if dsn == "" {
		dsn = cfg.Postgres.DSN
	}
	if dsn == "" {
		return nil, nil, errors.New("postgres dsn is required (--dsn or RECAST_POSTGRES_DSN)")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return cfg, pool, nil
}

// tableRefWithDefault fills in the configured schema when the caller gave a
// bare table name.
func tableRefWithDefault(cfg *config.Config, name string) ddl.TableRef {
	ref := ddl.ParseTableRef(name)
	if ref.Schema == "" {
		ref.Schema = cfg.DDL.DefaultSchema
	}
	return ref
}

func numericOptions(precision, scale *int) *catalog.NumericOptions {
	if precision == nil && scale == nil {
		return nil
	}
	options := &catalog.NumericOptions{Scale: scale}
	if precision != nil {
		options.Precision = *precision
	}
	return options
}

func loadColumnDefinitions(fs afero.Fs, path string) ([]ddl.ColumnDefinition, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read column definitions: %w", err)
	}
	var defs []ddl.ColumnDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse column definitions: %w", err)
	}
	if len(defs) == 0 {
		return nil, errors.New("column definitions file is empty")
	}
	for i, def := range defs {
		if err := validate.Struct(def); err != nil {
			return nil, fmt.Errorf("invalid column definition %d: %w", i, err)
		}
	}
	return defs, nil
}
