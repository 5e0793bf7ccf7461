package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/wasmkit/ipint"
	"github.com/wasmkit/ipint/internal/dispatch"
	"github.com/wasmkit/ipint/internal/layoutstore"
	"github.com/wasmkit/ipint/internal/manifest"
	"github.com/wasmkit/ipint/internal/opcode"
	"github.com/wasmkit/ipint/internal/ptrtag"
	"github.com/wasmkit/ipint/internal/table"
	"github.com/wasmkit/ipint/internal/version"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	var verbosity int
	flag.IntVar(&verbosity, "v", 0, "log verbosity")

	flag.Parse()

	commonlog.Configure(verbosity, nil)

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "selftest":
		doSelftest(flag.Args()[1:], stdOut, stdErr, exit)
	case "layout":
		doLayout(flag.Args()[1:], stdOut, stdErr, exit)
	case "version":
		fmt.Fprintln(stdOut, version.Get())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

// tierFileConfig is the optional TOML file selftest reads. Flags beat the
// file where both are given.
type tierFileConfig struct {
	Features      []string `toml:"features"`
	Journal       string   `toml:"journal"`
	PointerTagKey uint     `toml:"pointer_tag_key"`
	Verbosity     int      `toml:"verbosity"`
}

func doSelftest(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("selftest", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var configPath string
	flags.StringVar(&configPath, "config", "", "TOML file with tier settings")

	var journalDir string
	flags.StringVar(&journalDir, "journal", "", "directory of the layout journal to record into")

	tagKey := tagKeyFlag(flags)

	var feats sliceFlag
	flags.Var(&feats, "feature", "instruction-set extension to enable, repeatable")

	_ = flags.Parse(args)

	if help {
		printSelftestUsage(stdErr, flags)
		exit(0)
	}

	if !ipint.TierSupported {
		fmt.Fprintln(stdErr, "the interpreter tier is not supported in this build")
		exit(1)
	}

	var fileCfg tierFileConfig
	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, &fileCfg); err != nil {
			fmt.Fprintf(stdErr, "error reading config: %v\n", err)
			exit(1)
		}
	}
	if fileCfg.Verbosity != 0 {
		commonlog.Configure(fileCfg.Verbosity, nil)
	}
	if journalDir == "" {
		journalDir = fileCfg.Journal
	}
	if *tagKey == 0 {
		*tagKey = fileCfg.PointerTagKey
	}

	c := ipint.NewTierConfig().
		WithFeatures(fileCfg.Features...).
		WithFeatures(feats...).
		WithFeaturesFromEnvironment()
	if *tagKey != 0 {
		c = c.WithPointerTags(ptrtag.HighBits(uint16(*tagKey)))
	}

	tier, err := ipint.NewTier(c)
	if err != nil {
		fmt.Fprintf(stdErr, "error building dispatch tables: %v\n", err)
		exit(1)
	}
	defer tier.Close()

	// A layout mismatch aborts the process before this returns.
	tier.VerifyInitialization()

	for _, g := range tier.Layout() {
		fmt.Fprintf(stdOut, "%-12s %4d handlers  stride %3d  digest %s\n",
			g.Group, g.Handlers, g.Stride, hex.EncodeToString(g.Digest[:6]))
	}

	rep, err := tier.SelfTest(context.Background())
	if err != nil {
		fmt.Fprintf(stdErr, "self test failed: %v\n", err)
		exit(1)
	}
	fmt.Fprintf(stdOut, "dispatch walk: %d instructions, %d calls, %d helper steps\n",
		rep.Instructions, rep.Calls, rep.HelperDispatches)

	if journalDir != "" {
		appended, err := recordTierLayout(tier, journalDir)
		if err != nil {
			fmt.Fprintf(stdErr, "error recording layout: %v\n", err)
			exit(1)
		}
		if appended {
			fmt.Fprintln(stdOut, "layout recorded")
		} else {
			fmt.Fprintln(stdOut, "layout unchanged")
		}
	}
	exit(0)
}

func recordTierLayout(tier *ipint.Tier, dir string) (bool, error) {
	j, err := ipint.OpenLayoutJournal(dir)
	if err != nil {
		return false, err
	}
	defer j.Close()
	return j.Record(tier)
}

func doLayout(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	if len(args) == 0 {
		printLayoutUsage(stdErr)
		exit(1)
	}

	switch args[0] {
	case "show":
		doLayoutShow(args[1:], stdOut, stdErr, exit)
	case "export":
		doLayoutExport(args[1:], stdOut, stdErr, exit)
	case "record":
		doLayoutRecord(args[1:], stdOut, stdErr, exit)
	case "history":
		doLayoutHistory(args[1:], stdOut, stdErr, exit)
	default:
		fmt.Fprintln(stdErr, "invalid layout action")
		printLayoutUsage(stdErr)
		exit(1)
	}
}

// buildVerified emits tables for arch and proves their layout the same way
// tier initialization does. A mismatch aborts the process.
func buildVerified(arch string, tagKey uint) (*table.Tables, *dispatch.Config, error) {
	b := table.NewBuilder(opcode.IPInt()).WithArch(arch)
	var scheme ptrtag.Scheme
	if tagKey != 0 {
		scheme = ptrtag.HighBits(uint16(tagKey))
		b = b.WithTagScheme(scheme)
	}
	tab, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	reg := dispatch.NewRegistry(opcode.IPInt(), scheme)
	reg.Initialize(tab)
	return tab, reg.Config(), nil
}

func doLayoutShow(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("layout show", flag.ExitOnError)
	flags.SetOutput(stdErr)

	arch := archFlag(flags)
	tagKey := tagKeyFlag(flags)
	_ = flags.Parse(args)

	tab, cfg, err := buildVerified(*arch, *tagKey)
	if err != nil {
		fmt.Fprintf(stdErr, "error building dispatch tables: %v\n", err)
		exit(1)
	}
	defer tab.Close()

	m := manifest.FromConfig(version.Get(), cfg)
	fp, err := m.Fingerprint()
	if err != nil {
		fmt.Fprintf(stdErr, "error fingerprinting layout: %v\n", err)
		exit(1)
	}

	fmt.Fprintf(stdOut, "arch: %s\n", cfg.Arch())
	fmt.Fprintf(stdOut, "segment: %d bytes\n", tab.Size())
	for _, g := range tab.Groups() {
		fmt.Fprintf(stdOut, "%-12s %4d handlers  stride %3d  offset %8d  digest %s\n",
			g.ID, g.Count, g.Stride, g.Offset, hex.EncodeToString(g.Digest[:6]))
	}
	fmt.Fprintf(stdOut, "fingerprint: %s\n", hex.EncodeToString(fp[:]))
	exit(0)
}

func doLayoutExport(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("layout export", flag.ExitOnError)
	flags.SetOutput(stdErr)

	arch := archFlag(flags)
	tagKey := tagKeyFlag(flags)
	out := flags.String("o", "", "path to write the canonical layout manifest to")
	_ = flags.Parse(args)

	if *out == "" {
		fmt.Fprintln(stdErr, "missing -o output path")
		exit(1)
	}

	tab, cfg, err := buildVerified(*arch, *tagKey)
	if err != nil {
		fmt.Fprintf(stdErr, "error building dispatch tables: %v\n", err)
		exit(1)
	}
	defer tab.Close()

	enc, err := manifest.FromConfig(version.Get(), cfg).Encode()
	if err != nil {
		fmt.Fprintf(stdErr, "error encoding layout manifest: %v\n", err)
		exit(1)
	}
	if err := os.WriteFile(*out, enc, 0o644); err != nil {
		fmt.Fprintf(stdErr, "error writing layout manifest: %v\n", err)
		exit(1)
	}
	fmt.Fprintf(stdOut, "wrote %d bytes to %s\n", len(enc), *out)
	exit(0)
}

func doLayoutRecord(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("layout record", flag.ExitOnError)
	flags.SetOutput(stdErr)

	arch := archFlag(flags)
	tagKey := tagKeyFlag(flags)
	journalDir := journalFlag(flags)
	_ = flags.Parse(args)

	if *journalDir == "" {
		fmt.Fprintln(stdErr, "missing -journal directory")
		exit(1)
	}

	tab, cfg, err := buildVerified(*arch, *tagKey)
	if err != nil {
		fmt.Fprintf(stdErr, "error building dispatch tables: %v\n", err)
		exit(1)
	}
	defer tab.Close()

	st, err := openJournalStore(*journalDir, *arch)
	if err != nil {
		fmt.Fprintf(stdErr, "error opening layout journal: %v\n", err)
		exit(1)
	}
	defer st.Close()

	appended, err := st.Append(manifest.FromConfig(version.Get(), cfg))
	if err != nil {
		fmt.Fprintf(stdErr, "error recording layout: %v\n", err)
		exit(1)
	}
	if appended {
		fmt.Fprintln(stdOut, "layout recorded")
	} else {
		fmt.Fprintln(stdOut, "layout unchanged")
	}
	exit(0)
}

func doLayoutHistory(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("layout history", flag.ExitOnError)
	flags.SetOutput(stdErr)

	arch := archFlag(flags)
	journalDir := journalFlag(flags)
	_ = flags.Parse(args)

	if *journalDir == "" {
		fmt.Fprintln(stdErr, "missing -journal directory")
		exit(1)
	}

	st, err := openJournalStore(*journalDir, *arch)
	if err != nil {
		fmt.Fprintf(stdErr, "error opening layout journal: %v\n", err)
		exit(1)
	}
	defer st.Close()

	recs, err := st.History()
	if err != nil {
		fmt.Fprintf(stdErr, "error reading layout journal: %v\n", err)
		exit(1)
	}
	if len(recs) == 0 {
		fmt.Fprintln(stdOut, "no layout records")
		exit(0)
	}
	var prev *manifest.Manifest
	for _, r := range recs {
		fp, err := r.Manifest.Fingerprint()
		if err != nil {
			fmt.Fprintf(stdErr, "error reading layout journal: %v\n", err)
			exit(1)
		}
		fmt.Fprintf(stdOut, "#%d  %s  %s  %s  %s\n",
			r.Seq, r.Time.Format(time.RFC3339), r.Manifest.Version, r.Manifest.Arch,
			hex.EncodeToString(fp[:6]))
		if prev != nil {
			for _, line := range manifest.Diff(prev, r.Manifest) {
				fmt.Fprintf(stdOut, "      %s\n", line)
			}
		}
		prev = r.Manifest
	}
	exit(0)
}

// openJournalStore opens the per-platform journal database under dir,
// creating the directory as needed. The naming matches the public journal,
// so records written by a running tier and by this tool land together.
func openJournalStore(dir, arch string) (*layoutstore.Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return layoutstore.Open(filepath.Join(dir, "ipint-"+runtime.GOOS+"-"+arch+".db"))
}

func archFlag(flags *flag.FlagSet) *string {
	return flags.String("arch", runtime.GOARCH, "instruction set to emit tables for")
}

func tagKeyFlag(flags *flag.FlagSet) *uint {
	return flags.Uint("tagkey", 0, "pointer tag key, zero for untagged addresses")
}

func journalFlag(flags *flag.FlagSet) *string {
	return flags.String("journal", "", "directory of the layout journal")
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "ipint CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  ipint <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  selftest\tBuilds, verifies and exercises the dispatch tables")
	fmt.Fprintln(stdErr, "  layout\tInspects and journals dispatch table layouts")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of ipint CLI")
}

func printSelftestUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "ipint CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  ipint selftest <options>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

func printLayoutUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "ipint CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  ipint layout <action> <options>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Actions:")
	fmt.Fprintln(stdErr, "  show\t\tPrints the computed layout of a table build")
	fmt.Fprintln(stdErr, "  export\tWrites the canonical layout manifest to a file")
	fmt.Fprintln(stdErr, "  record\tAppends the layout to a journal if it changed")
	fmt.Fprintln(stdErr, "  history\tLists the journal's layout records")
}

type sliceFlag []string

func (f *sliceFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *sliceFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}
