// Package display renders parsed accounts, transactions and blocks as
// terminal tables.
package display

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/brojonat/solscope/service/account"
	"github.com/brojonat/solscope/service/balance"
	"github.com/fatih/color"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/rodaine/table"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()

	headerFmt = color.New(color.FgCyan, color.Underline).SprintfFunc()
)

// Renderer writes tables to an io.Writer.
type Renderer struct {
	out   io.Writer
	width int
}

// New creates a Renderer. A non-positive width means DefaultWidth.
func New(out io.Writer, width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{out: out, width: width}
}

// TerminalWidth returns the column count of f, or DefaultWidth when f is not
// a terminal.
func TerminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

func (r *Renderer) newTable(columns ...interface{}) table.Table {
	return table.New(columns...).WithHeaderFormatter(headerFmt).WithWriter(r.out)
}

func (r *Renderer) title(s string) {
	fmt.Fprintln(r.out, bold(s))
}

// Account renders any ParsedAccount.
func (r *Renderer) Account(a account.ParsedAccount) error {
	switch v := a.(type) {
	case *account.SystemAccount:
		r.systemAccount(v)
	case *account.TokenAccount:
		r.tokenAccount(v)
	case *account.MintAccount:
		r.mintAccount(v)
	case *account.OtherAccount:
		r.otherAccount(v)
	default:
		return fmt.Errorf("unsupported account type %T", a)
	}
	return nil
}

func (r *Renderer) systemAccount(a *account.SystemAccount) {
	r.title("System Account")
	tbl := r.newTable("Field", "Value")
	tbl.AddRow("Address", a.Key.String())
	tbl.AddRow("Balance", a.Balance+" SOL")
	tbl.Print()
	fmt.Fprintln(r.out)

	if len(a.TokenAccounts) == 0 {
		fmt.Fprintln(r.out, yellow("No token accounts."))
		return
	}
	r.title("Token Accounts")
	tbl = r.newTable("Symbol", "Balance", "Mint", "Account", "Program")
	for _, ta := range a.TokenAccounts {
		tbl.AddRow(orDash(ta.Symbol), ta.Balance, ta.Mint, ta.Key, ta.Program)
	}
	tbl.Print()
}

func (r *Renderer) tokenAccount(a *account.TokenAccount) {
	r.title(tokenTitle("Token Account", a))
	tbl := r.newTable("Field", "Value")
	tbl.AddRow("Address", a.Key.String())
	tbl.AddRow("Mint", a.Mint.String())
	tbl.AddRow("Owner", a.Owner.String())
	tbl.AddRow("State", a.State)
	tbl.AddRow("Balance", a.Balance)
	tbl.AddRow("Symbol", orDash(a.Symbol))
	for _, ext := range a.Extensions {
		tbl.AddRow("Extension", ext.String())
	}
	tbl.Print()
}

func (r *Renderer) mintAccount(m *account.MintAccount) {
	r.title(tokenTitle("Mint", m))
	tbl := r.newTable("Field", "Value")
	tbl.AddRow("Address", m.Key.String())
	tbl.AddRow("Supply", m.DisplaySupply)
	tbl.AddRow("Decimals", m.Decimals)
	tbl.AddRow("Mint Authority", authority(m.MintAuthority))
	tbl.AddRow("Freeze Authority", authority(m.FreezeAuthority))
	for _, ext := range m.Extensions {
		tbl.AddRow("Extension", ext.String())
	}
	if md := m.Metadata; md != nil {
		tbl.AddRow("Name", md.Name)
		tbl.AddRow("Symbol", md.Symbol)
		tbl.AddRow("URI", md.URI)
		for _, f := range md.AdditionalMetadata {
			tbl.AddRow(f.Key, f.Value)
		}
	}
	tbl.Print()
}

func (r *Renderer) otherAccount(a *account.OtherAccount) {
	r.title("Account")
	tbl := r.newTable("Field", "Value")
	tbl.AddRow("Address", a.Key.String())
	tbl.AddRow("Owner", a.Owner.String())
	tbl.AddRow("Balance", a.Balance+" SOL")
	tbl.AddRow("Executable", a.Executable)
	tbl.Print()
	fmt.Fprintln(r.out)

	r.title("Data (base64)")
	for _, line := range wrap(base64.StdEncoding.EncodeToString(a.Data), r.width) {
		fmt.Fprintln(r.out, line)
	}
}

// tokenTitle labels a token record with the program generation that owns it.
func tokenTitle(name string, a account.TokenProgramAccount) string {
	return name + " (" + string(a.TokenProgram()) + ")"
}

// authority renders an unset authority as the all-zero key.
func authority(k *solanago.PublicKey) string {
	if k == nil {
		return solanago.PublicKey{}.String()
	}
	return k.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// wrap splits s into lines of at most width runes.
func wrap(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	if len(runes) == 0 {
		return []string{""}
	}
	var lines []string
	for len(runes) > width {
		lines = append(lines, string(runes[:width]))
		runes = runes[width:]
	}
	return append(lines, string(runes))
}

func formatUint(n uint64) string {
	return balance.FormatInteger(n)
}
