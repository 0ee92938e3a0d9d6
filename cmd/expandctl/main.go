// expandctl is the control CLI for expandd: it talks to the daemon over
// its control socket to inspect and change settings and expansion history.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/pabueco/typls/internal/daemonconfig"
	"github.com/pabueco/typls/internal/ipc"
	"github.com/pabueco/typls/internal/settings"
)

// Version is set via ldflags during build.
var Version = "dev"

var (
	configFlag = flag.String("config", "", "path to daemon.toml (defaults to the platform state directory)")
	socketFlag = flag.String("socket", "", "control socket path (overrides daemon.toml)")
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "ping":
		cmdPing()
	case "settings":
		cmdSettings(args[1:])
	case "history":
		cmdHistory(args[1:])
	case "version", "-v", "--version":
		fmt.Println(Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "expandctl: unknown command %q\n\n", args[0])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`expandctl - control CLI for expandd

USAGE:
    expandctl <command> [options]

COMMANDS:
    ping                    Check the daemon is reachable
    settings get            Print the daemon's current settings as JSON
    settings set <file|->   Replace settings from a JSON file (or stdin)
    settings defaults       Print the built-in default settings
    settings path           Print the path of the settings file on disk
    settings open           Open the settings file's directory
    settings reload         Force the daemon to re-read settings from disk
    settings export <file>  Write current settings as YAML
    settings import <file>  Replace settings from a YAML file
    history [-limit N]      Show recently fired expansions
    version                 Show version information
    help                    Show this help message`)
}

func socketPath() string {
	if *socketFlag != "" {
		return *socketFlag
	}
	cfg, err := daemonconfig.Load(*configFlag)
	if err != nil {
		return daemonconfig.DefaultConfig().SocketPath
	}
	return cfg.SocketPath
}

func connect() *ipc.Client {
	client, err := ipc.Dial(socketPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "expandctl: cannot connect to expandd: %v\n", err)
		fmt.Fprintln(os.Stderr, "  (is the daemon running?)")
		os.Exit(1)
	}
	return client
}

func cmdPing() {
	client := connect()
	defer client.Close()

	rtt, err := client.Ping()
	if err != nil {
		fmt.Fprintf(os.Stderr, "expandctl: ping failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("pong (%s)\n", rtt)
}

func cmdSettings(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "expandctl: settings requires a subcommand")
		os.Exit(1)
	}

	switch args[0] {
	case "get":
		printSettings(fetchSettings())
	case "defaults":
		client := connect()
		defer client.Close()
		var s settings.Settings
		if err := client.Request(ipc.MsgGetDefaults, struct{}{}, &s); err != nil {
			fatal(err)
		}
		printSettings(s)
	case "set":
		requireArg(args, 1, "settings set <file|->")
		setSettings(readSettingsJSON(args[1]))
	case "path":
		client := connect()
		defer client.Close()
		var resp ipc.SettingsPathResponse
		if err := client.Request(ipc.MsgGetSettingsPath, struct{}{}, &resp); err != nil {
			fatal(err)
		}
		fmt.Println(resp.Path)
	case "open":
		client := connect()
		var resp ipc.SettingsPathResponse
		if err := client.Request(ipc.MsgGetSettingsPath, struct{}{}, &resp); err != nil {
			client.Close()
			fatal(err)
		}
		client.Close()
		openInFileManager(resp.Path)
	case "reload":
		client := connect()
		defer client.Close()
		if err := client.Request(ipc.MsgReloadSettings, struct{}{}, nil); err != nil {
			fatal(err)
		}
		fmt.Println("settings reloaded")
	case "export":
		requireArg(args, 1, "settings export <file>")
		exportSettings(args[1])
	case "import":
		requireArg(args, 1, "settings import <file>")
		importSettings(args[1])
	default:
		fmt.Fprintf(os.Stderr, "expandctl: unknown settings subcommand %q\n", args[0])
		os.Exit(1)
	}
}

func fetchSettings() settings.Settings {
	client := connect()
	defer client.Close()

	var s settings.Settings
	if err := client.Request(ipc.MsgGetSettings, struct{}{}, &s); err != nil {
		fatal(err)
	}
	return s
}

func setSettings(s settings.Settings) {
	body, err := json.Marshal(s)
	if err != nil {
		fatal(err)
	}

	client := connect()
	defer client.Close()
	if err := client.Request(ipc.MsgSetSettings, ipc.SetSettingsRequest{Settings: body}, nil); err != nil {
		fatal(err)
	}
	fmt.Println("settings updated")
}

func readSettingsJSON(src string) settings.Settings {
	data, err := readSource(src)
	if err != nil {
		fatal(err)
	}

	var s settings.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		fatal(fmt.Errorf("parse settings JSON: %w", err))
	}
	return s
}

// exportSettings and importSettings round-trip through a generic map
// rather than yaml.Marshal(settings.Settings) directly, so the YAML keys
// match the JSON field names (yaml.v3 has no knowledge of the `json`
// struct tags Settings is defined with).
func exportSettings(path string) {
	s := fetchSettings()

	jsonData, err := json.Marshal(s)
	if err != nil {
		fatal(err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(jsonData, &generic); err != nil {
		fatal(err)
	}

	yamlData, err := yaml.Marshal(generic)
	if err != nil {
		fatal(err)
	}
	if err := os.WriteFile(path, yamlData, 0o600); err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %s\n", path)
}

func importSettings(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err)
	}

	var generic map[string]interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		fatal(fmt.Errorf("parse settings YAML: %w", err))
	}
	jsonData, err := json.Marshal(generic)
	if err != nil {
		fatal(err)
	}

	var s settings.Settings
	if err := json.Unmarshal(jsonData, &s); err != nil {
		fatal(fmt.Errorf("parse settings: %w", err))
	}
	setSettings(s)
}

func cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum number of entries to show")
	fs.Parse(args)

	client := connect()
	defer client.Close()

	var resp ipc.HistoryResponse
	if err := client.Request(ipc.MsgGetHistory, ipc.HistoryRequest{Limit: *limit}, &resp); err != nil {
		fatal(err)
	}

	if len(resp.Entries) == 0 {
		fmt.Println("(no expansion history recorded)")
		return
	}
	for _, e := range resp.Entries {
		fmt.Printf("%s  %-20s  %-12s  %s\n", e.Timestamp, e.Abbr, e.ExpansionID, e.ProcessPath)
	}
}

func printSettings(s settings.Settings) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(data))
}

func readSource(src string) ([]byte, error) {
	if src == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(src)
}

func openInFileManager(path string) {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", dir)
	case "windows":
		cmd = exec.Command("explorer", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	if err := cmd.Run(); err != nil {
		fatal(fmt.Errorf("open file manager: %w", err))
	}
}

func requireArg(args []string, idx int, usage string) {
	if len(args) <= idx {
		fmt.Fprintf(os.Stderr, "expandctl: usage: %s\n", usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "expandctl: %v\n", err)
	os.Exit(1)
}
