package display

import (
	"fmt"

	"github.com/brojonat/solscope/service/balance"
	"github.com/brojonat/solscope/service/block"
	"github.com/brojonat/solscope/service/transaction"
)

// Transaction renders a resolved transaction: status, accounts and logs.
func (r *Renderer) Transaction(tx *transaction.ParsedTransaction) {
	r.title("Transaction")
	tbl := r.newTable("Field", "Value")
	tbl.AddRow("Signature", tx.Signature)
	tbl.AddRow("Status", status(tx))
	tbl.AddRow("Slot", formatUint(tx.Slot))
	tbl.AddRow("Block Time", tx.BlockTime.Format("2006-01-02 15:04:05 MST"))
	tbl.AddRow("Version", tx.Version)
	tbl.AddRow("Recent Blockhash", tx.RecentBlockhash.String())
	tbl.AddRow("Fee", balance.FormatSOL(tx.Fee)+" SOL")
	if tx.ComputeUnits != nil {
		tbl.AddRow("Compute Units", formatUint(*tx.ComputeUnits))
	}
	tbl.Print()
	fmt.Fprintln(r.out)

	r.title("Accounts")
	tbl = r.newTable("#", "Address", "Signer", "Writable", "Source", "Pre", "Post")
	for i, a := range tx.Accounts {
		tbl.AddRow(i, a.Pubkey.String(), flag(a.IsSigner), flag(a.IsWritable), source(a), lamports(a.PreBalance), lamports(a.PostBalance))
	}
	tbl.Print()

	if len(tx.LookupFailures) > 0 {
		fmt.Fprintln(r.out)
		r.title("Skipped Lookup Tables")
		tbl = r.newTable("Table", "Error")
		for _, f := range tx.LookupFailures {
			tbl.AddRow(f.Table.String(), red(f.Error))
		}
		tbl.Print()
	}

	if len(tx.LogMessages) > 0 {
		fmt.Fprintln(r.out)
		r.title("Logs")
		for _, msg := range tx.LogMessages {
			for _, line := range wrap(msg, r.width) {
				fmt.Fprintln(r.out, line)
			}
		}
	}
}

func status(tx *transaction.ParsedTransaction) string {
	if tx.Success {
		return green("SUCCESS")
	}
	if tx.Error != "" {
		return red("FAILURE") + " " + tx.Error
	}
	return red("FAILURE")
}

func flag(b bool) string {
	if b {
		return green("yes")
	}
	return "no"
}

func source(a transaction.ResolvedAccountMeta) string {
	if a.Table != nil {
		return cyan("lookup " + a.Table.String())
	}
	return string(a.Source)
}

func lamports(v *uint64) string {
	if v == nil {
		return "-"
	}
	return balance.FormatSOL(*v)
}

// Block renders one slot's summary.
func (r *Renderer) Block(b *block.ParsedBlock) {
	r.title(fmt.Sprintf("Block %s", formatUint(b.Slot)))
	tbl := r.newTable("Field", "Value")
	tbl.AddRow("Parent Slot", formatUint(b.ParentSlot))
	tbl.AddRow("Blockhash", b.Blockhash.String())
	tbl.AddRow("Leader", b.Leader.String())
	tbl.AddRow("Fee Reward", fmt.Sprintf("%d.%09d SOL", b.RewardWhole, abs(b.RewardFrac)))
	tbl.AddRow("Vote Transactions", b.Vote)
	tbl.AddRow("Non-vote Transactions", b.NonVote)
	tbl.AddRow("Total Transactions", b.Total)
	tbl.AddRow("Compute Units", formatUint(b.ComputeUnits))
	tbl.Print()

	if len(b.Programs) > 0 {
		fmt.Fprintln(r.out)
		r.title("Program Invocations")
		tbl = r.newTable("Program", "Count")
		for _, pc := range b.Programs {
			tbl.AddRow(pc.Program.String(), pc.Count)
		}
		tbl.Print()
	}
	fmt.Fprintln(r.out)
}

// SlotFailed renders a per-slot failure notice of a range scan.
func (r *Renderer) SlotFailed(slot uint64, err error) {
	fmt.Fprintf(r.out, "%s slot %d: %v\n\n", yellow("skipped"), slot, err)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
