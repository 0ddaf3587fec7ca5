package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/liangyou/vodka/internal/remote"
	"github.com/liangyou/vodka/internal/version"
	"github.com/liangyou/vodka/pkg/models"
)

// ListService 描述目录与本地运行时查询能力。
type ListService interface {
	RemoteEntries(ctx context.Context) ([]models.CatalogEntry, error)
	LocalRuntimes() ([]models.InstalledRuntime, error)
	BestEntry(ctx context.Context, target models.Version, source models.RuntimeSource) (models.CatalogEntry, error)
}

// InstallService 描述安装能力。
type InstallService interface {
	InstallFeed(ctx context.Context) (models.InstalledRuntime, error)
	InstallEntry(ctx context.Context, entry models.CatalogEntry) (models.InstalledRuntime, error)
	InstallLocal(ctx context.Context, v models.Version, path string, verify bool) (models.InstalledRuntime, error)
}

// UninstallService 描述卸载能力。
type UninstallService interface {
	Uninstall(v models.Version) ([]models.Version, error)
}

// BinResolver 为内置版本或自定义路径定位 bin 目录。
type BinResolver interface {
	ResolveBinFolder(selector models.RuntimeSelector) (string, error)
}

// PlatformChecker 在安装前校验运行环境。
type PlatformChecker interface {
	Validate() error
}

// Services 汇集命令需要的全部依赖，任一字段为 nil 时对应命令不可用。
type Services struct {
	Lister      ListService
	Installer   InstallService
	Uninstaller UninstallService
	Registry    BinResolver
	Platform    PlatformChecker
}

// Factory 在解析完全局参数后根据配置文件路径构造依赖。
type Factory func(configFile string) (*Services, error)

// App 负责 CLI 命令解析与分发。
type App struct {
	out     io.Writer
	errOut  io.Writer
	version string
	factory Factory

	services   *Services
	configFile string
	logLevel   string

	heading lipgloss.Style
	warning lipgloss.Style
}

// NewApp 创建 CLI 应用实例。
func NewApp(out io.Writer, factory Factory, version string) *App {
	if out == nil {
		out = os.Stdout
	}
	renderer := lipgloss.NewRenderer(out)
	return &App{
		out:     out,
		errOut:  os.Stderr,
		version: version,
		factory: factory,
		heading: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		warning: renderer.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// SetErrOutput 设置日志与进度输出，默认 stderr。
func (a *App) SetErrOutput(w io.Writer) {
	if w != nil {
		a.errOut = w
	}
}

// Run 解析参数并执行命令。
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vodka",
		Short:         "vodka - wine runtime manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initLogging(); err != nil {
				return err
			}
			if cmd.Name() == "version" {
				return nil
			}
			return a.loadServices()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is $HOME/.vodka/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error, disabled)")

	root.AddCommand(
		a.catalogCommand(),
		a.listCommand(),
		a.installCommand(),
		a.uninstallCommand(),
		a.binCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *App) initLogging() error {
	level, err := zerolog.ParseLevel(a.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", a.logLevel)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: a.errOut})
	return nil
}

func (a *App) loadServices() error {
	if a.services != nil {
		return nil
	}
	if a.factory == nil {
		return errors.New("no services configured")
	}
	services, err := a.factory(a.configFile)
	if err != nil {
		return err
	}
	a.services = services
	return nil
}

func (a *App) catalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List runtimes available from all sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.services.Lister == nil {
				return errors.New("catalog listing is unavailable")
			}
			entries, err := a.services.Lister.RemoteEntries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "No runtimes available.")
				return nil
			}
			fmt.Fprintln(a.out, a.heading.Render("Available runtimes:"))
			for _, e := range entries {
				fmt.Fprintf(a.out, "  %s\n", version.FormatCatalogEntry(e))
			}
			return nil
		},
	}
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed runtimes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.services.Lister == nil {
				return errors.New("local listing is unavailable")
			}
			runtimes, err := a.services.Lister.LocalRuntimes()
			if err != nil {
				return err
			}
			if len(runtimes) == 0 {
				fmt.Fprintln(a.out, "No runtimes installed.")
				return nil
			}
			fmt.Fprintln(a.out, a.heading.Render("Installed runtimes:"))
			for _, rt := range runtimes {
				fmt.Fprintf(a.out, "  %s\n", version.FormatInstalled(rt))
			}
			return nil
		},
	}
}

func (a *App) installCommand() *cobra.Command {
	var (
		source      string
		archivePath string
		verify      bool
	)
	cmd := &cobra.Command{
		Use:   "install [version]",
		Short: "Install a runtime from the feed, the catalog or a local archive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.services.Installer == nil {
				return errors.New("install command is unavailable")
			}
			if a.services.Platform != nil {
				if err := a.services.Platform.Validate(); err != nil {
					return err
				}
			}
			ctx := cmd.Context()

			var (
				rt  models.InstalledRuntime
				err error
			)
			switch {
			case archivePath != "":
				if len(args) == 0 {
					return errors.New("install --archive requires a version")
				}
				v, perr := parseVersionArg(args[0])
				if perr != nil {
					return perr
				}
				rt, err = a.services.Installer.InstallLocal(ctx, v, archivePath, verify)
			case len(args) == 0:
				rt, err = a.services.Installer.InstallFeed(ctx)
			default:
				if a.services.Lister == nil {
					return errors.New("catalog lookup is unavailable")
				}
				v, perr := parseVersionArg(args[0])
				if perr != nil {
					return perr
				}
				entry, lerr := a.services.Lister.BestEntry(ctx, v, models.RuntimeSource(source))
				if lerr != nil {
					return lerr
				}
				if entry.Version != v {
					fmt.Fprintf(a.out, "Using %s for requested %s\n", entry.Version, v)
				}
				rt, err = a.services.Installer.InstallEntry(ctx, entry)
			}
			if err != nil {
				return err
			}

			if !rt.Verified {
				fmt.Fprintln(a.out, a.warning.Render("Warning: checksum not verified"))
			}
			fmt.Fprintf(a.out, "Installed wine %s at %s\n", rt.Version, rt.Root)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "restrict catalog lookup to one source (official, community)")
	cmd.Flags().StringVar(&archivePath, "archive", "", "install a local archive instead of downloading")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify --archive against the feed checksum")
	return cmd
}

func (a *App) uninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <version>",
		Short: "Remove an installed runtime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.services.Uninstaller == nil {
				return errors.New("uninstall command is unavailable")
			}
			v, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			remaining, err := a.services.Uninstaller.Uninstall(v)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Uninstalled wine %s\n", v)
			fmt.Fprintln(a.out, "Remaining versions:")
			if len(remaining) == 0 {
				fmt.Fprintln(a.out, "  (none)")
				return nil
			}
			for _, rv := range remaining {
				fmt.Fprintf(a.out, "  %s\n", rv)
			}
			return nil
		},
	}
}

func (a *App) binCommand() *cobra.Command {
	var custom string
	cmd := &cobra.Command{
		Use:   "bin [version]",
		Short: "Print the bin folder of an installed or custom runtime",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.services.Registry == nil {
				return errors.New("bin command is unavailable")
			}
			var selector models.RuntimeSelector
			switch {
			case custom != "" && len(args) > 0:
				return errors.New("bin accepts either a version or --custom, not both")
			case custom != "":
				selector = models.Custom(custom)
			case len(args) == 1:
				v, err := parseVersionArg(args[0])
				if err != nil {
					return err
				}
				selector = models.Builtin(v)
			default:
				return errors.New("bin requires a version or --custom")
			}

			bin, err := a.services.Registry.ResolveBinFolder(selector)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, bin)
			return nil
		},
	}
	cmd.Flags().StringVar(&custom, "custom", "", "path to a user-provided wine runtime")
	return cmd
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show vodka version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "vodka version %s\n", a.version)
		},
	}
}

// parseVersionArg 接受 "9.21"、"v9.21.0"、"wine-9.21" 等写法。
func parseVersionArg(input string) (models.Version, error) {
	v, ok := remote.ParseTag(input)
	if !ok {
		return models.Version{}, fmt.Errorf("invalid version %q", input)
	}
	return v, nil
}
