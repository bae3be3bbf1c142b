package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/services"
)

var errHistoryViolated = errors.New("history has a negative balance")

type app struct {
	ledger  *services.LedgerService
	profile string
	out     io.Writer
	today   func() core.Date
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"profiles":       {"List profiles", runProfiles},
	"profile-add":    {"Create a profile", runProfileAdd},
	"accounts":       {"List bank accounts", runAccounts},
	"account-add":    {"Create a bank account", runAccountAdd},
	"account-rename": {"Rename or recolor a bank account", runAccountRename},
	"account-delete": {"Delete a bank account, keeping its transactions", runAccountDelete},
	"list":           {"List transactions in ledger order", runList},
	"add":            {"Add an income or expense", runAdd},
	"edit":           {"Edit a transaction", runEdit},
	"delete":         {"Delete a transaction", runDelete},
	"transfer":       {"Move money between accounts", runTransfer},
	"pay-debt":       {"Record a liability or loan payment", runPayDebt},
	"balances":       {"Show balances, optionally as of a day", runBalances},
	"check":          {"Validate the stored history", runCheck},
	"min-date":       {"Earliest day an account can cover an amount", runMinDate},
	"first-income":   {"Day of the first income", runFirstIncome},
	"fixed-add":      {"Add a fixed (recurring) expense", runFixedAdd},
	"fixed":          {"List fixed expenses", runFixed},
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "saldo - personal ledger")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  saldo <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w, "\nRun 'saldo <command> -h' for more information on a command.")
}

// flags returns a flag set carrying the shared -profile option.
func (a *app) flags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	profile := fs.String("profile", a.profile, "profile id")
	return fs, profile
}

func parse(fs *flag.FlagSet, args []string) (help bool, err error) {
	err = fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return true, nil
	}
	return false, err
}

func (a *app) day(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return a.today(), nil
	}
	return core.ParseDate(s)
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}

func runProfiles(ctx context.Context, a *app, args []string) error {
	fs, _ := a.flags("profiles")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	profiles, err := a.ledger.ListProfiles(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"ID", "Name"})
	for _, p := range profiles {
		table.Append([]string{p.ID, p.Name})
	}
	table.Render()
	return nil
}

func runProfileAdd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("profile-add", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.String("id", "", "profile id (generated when empty)")
	name := fs.String("name", "", "display name")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	p, err := a.ledger.CreateProfile(ctx, core.Profile{ID: *id, Name: *name})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created profile %s\n", p.ID)
	return nil
}

func runAccounts(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("accounts")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	accounts, err := a.ledger.ListAccounts(ctx, *profile)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"ID", "Name", "Color"})
	for _, acc := range accounts {
		table.Append([]string{acc.ID, acc.Name, acc.Color})
	}
	table.Render()
	return nil
}

func runAccountAdd(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("account-add")
	name := fs.String("name", "", "account name")
	color := fs.String("color", "", "display color")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	acc, err := a.ledger.CreateAccount(ctx, *profile, *name, *color)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created account %s\n", acc.ID)
	return nil
}

func runAccountRename(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("account-rename")
	id := fs.String("id", "", "account id")
	name := fs.String("name", "", "new name")
	color := fs.String("color", "", "new color")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	if *name == "" && *color == "" {
		return errors.New("nothing to change: pass -name and/or -color")
	}
	if *name != "" {
		if err := a.ledger.RenameAccount(ctx, *profile, *id, *name); err != nil {
			return err
		}
	}
	if *color != "" {
		if err := a.ledger.RecolorAccount(ctx, *profile, *id, *color); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "updated account %s\n", *id)
	return nil
}

func runAccountDelete(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("account-delete")
	id := fs.String("id", "", "account id")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	if err := a.ledger.DeleteAccount(ctx, *profile, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted account %s\n", *id)
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("list")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	txs, err := a.ledger.ListTransactions(ctx, *profile)
	if err != nil {
		return err
	}
	accounts, err := a.ledger.ListAccounts(ctx, *profile)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"Date", "Type", "Amount", "Account", "Description", "Flags", "ID"})
	for _, tx := range txs {
		var flags []string
		if tx.IsGift {
			flags = append(flags, "gift")
		}
		if tx.IsHidden {
			flags = append(flags, "read-only")
		}
		if tx.TransferID != "" {
			flags = append(flags, "transfer")
		}
		table.Append([]string{
			tx.Date.String(),
			string(tx.Type),
			tx.Amount.String(),
			ledger.AccountLabel(tx.Account, accounts),
			tx.Description,
			strings.Join(flags, ","),
			tx.ID,
		})
	}
	table.Render()
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("add")
	typ := fs.String("type", "expense", "income or expense")
	amount := fs.String("amount", "", "amount, e.g. 12.34")
	date := fs.String("date", "", "day as YYYY-MM-DD (default today)")
	account := fs.String("account", "cash", "cash or a bank account id")
	desc := fs.String("desc", "", "description")
	category := fs.String("category", "", "category id")
	gift := fs.Bool("gift", false, "gift: recorded but never counted")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	var tx core.Transaction
	var err error
	if tx.Type, err = core.ParseTransactionType(*typ); err != nil {
		return err
	}
	if tx.Amount, err = core.ParseAmount(*amount); err != nil {
		return fmt.Errorf("amount %q: %w", *amount, err)
	}
	if tx.Date, err = a.day(*date); err != nil {
		return err
	}
	if tx.Account, err = core.ParseAccountRef(*account); err != nil {
		return err
	}
	tx.Description = *desc
	tx.CategoryID = *category
	tx.IsGift = *gift

	tx, err = a.ledger.AddTransaction(ctx, *profile, tx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added %s\n", tx.ID)
	return nil
}

func runEdit(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("edit")
	id := fs.String("id", "", "transaction id")
	fs.String("type", "", "income or expense")
	fs.String("amount", "", "amount, e.g. 12.34")
	fs.String("date", "", "day as YYYY-MM-DD")
	fs.String("account", "", "cash or a bank account id")
	fs.String("desc", "", "description")
	fs.String("category", "", "category id")
	fs.Bool("gift", false, "gift: recorded but never counted")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}

	txs, err := a.ledger.ListTransactions(ctx, *profile)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(txs, func(t core.Transaction) bool { return t.ID == *id })
	if i < 0 {
		return fmt.Errorf("transaction %q not found", *id)
	}
	tx := txs[i]

	// only flags given on the command line change the transaction
	var ferr error
	fs.Visit(func(f *flag.Flag) {
		if ferr != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case "type":
			tx.Type, ferr = core.ParseTransactionType(v)
		case "amount":
			tx.Amount, ferr = core.ParseAmount(v)
		case "date":
			tx.Date, ferr = core.ParseDate(v)
		case "account":
			tx.Account, ferr = core.ParseAccountRef(v)
		case "desc":
			tx.Description = v
		case "category":
			tx.CategoryID = v
		case "gift":
			tx.IsGift = v == "true"
		}
		if ferr != nil {
			ferr = fmt.Errorf("-%s: %w", f.Name, ferr)
		}
	})
	if ferr != nil {
		return ferr
	}

	if err := a.ledger.EditTransaction(ctx, *profile, tx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated %s\n", tx.ID)
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("delete")
	id := fs.String("id", "", "transaction id")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	if err := a.ledger.DeleteTransaction(ctx, *profile, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", *id)
	return nil
}

func runTransfer(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("transfer")
	from := fs.String("from", "", "source: cash or a bank account id")
	to := fs.String("to", "", "destination: cash or a bank account id")
	amount := fs.String("amount", "", "amount, e.g. 12.34")
	date := fs.String("date", "", "day as YYYY-MM-DD (default today)")
	desc := fs.String("desc", "", "description")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	var req services.TransferRequest
	var err error
	if req.From, err = core.ParseAccountRef(*from); err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	if req.To, err = core.ParseAccountRef(*to); err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	if req.Amount, err = core.ParseAmount(*amount); err != nil {
		return fmt.Errorf("amount %q: %w", *amount, err)
	}
	if req.Date, err = a.day(*date); err != nil {
		return err
	}
	req.Description = *desc

	out, in, err := a.ledger.AddTransfer(ctx, *profile, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "transfer %s: %s -> %s\n", out.TransferID, out.ID, in.ID)
	return nil
}

func runPayDebt(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("pay-debt")
	account := fs.String("account", "cash", "cash or a bank account id")
	amount := fs.String("amount", "", "amount, e.g. 12.34")
	date := fs.String("date", "", "day as YYYY-MM-DD (default today)")
	desc := fs.String("desc", "", "description")
	liability := fs.String("liability", "", "liability id")
	loan := fs.String("loan", "", "loan id")
	readOnly := fs.Bool("read-only", false, "record for history only, no money moves")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	p := services.DebtPayment{
		Description: *desc,
		LiabilityID: *liability,
		LoanID:      *loan,
		ReadOnly:    *readOnly,
	}
	var err error
	if p.Account, err = core.ParseAccountRef(*account); err != nil {
		return err
	}
	if p.Amount, err = core.ParseAmount(*amount); err != nil {
		return fmt.Errorf("amount %q: %w", *amount, err)
	}
	if p.Date, err = a.day(*date); err != nil {
		return err
	}

	tx, err := a.ledger.RecordDebtPayment(ctx, *profile, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "recorded payment %s\n", tx.ID)
	return nil
}

func runBalances(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("balances")
	asOf := fs.String("as-of", "", "only count transactions up to this day (YYYY-MM-DD)")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	var (
		o   core.BalanceOverview
		err error
	)
	if *asOf == "" {
		o, err = a.ledger.Balances(ctx, *profile)
	} else {
		var day core.Date
		if day, err = core.ParseDate(*asOf); err != nil {
			return err
		}
		o, err = a.ledger.BalancesAsOf(ctx, *profile, day)
	}
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"Account", "ID", "Balance"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, row := range o.Accounts {
		table.Append([]string{row.Label, row.Account.String(), row.Balance.String()})
	}
	table.SetFooter([]string{"Total", "", o.Total.String()})
	table.Render()
	return nil
}

func runCheck(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("check")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	v, err := a.ledger.CheckHistory(ctx, *profile)
	if err != nil {
		return err
	}
	if v == nil {
		fmt.Fprintln(a.out, "ok")
		return nil
	}
	fmt.Fprintf(a.out, "%s: %s goes to %s on %s (transaction %s)\n",
		v.Kind, v.AccountLabel, v.Balance, v.Date, v.TransactionID)
	return errHistoryViolated
}

func runMinDate(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("min-date")
	account := fs.String("account", "cash", "cash or a bank account id")
	amount := fs.String("amount", "", "amount the account must hold")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	ref, err := core.ParseAccountRef(*account)
	if err != nil {
		return err
	}
	var need core.Money
	if *amount != "" {
		if need, err = core.ParseAmount(*amount); err != nil {
			return fmt.Errorf("amount %q: %w", *amount, err)
		}
	}
	day, err := a.ledger.EarliestTransferDate(ctx, *profile, ref, need, a.today())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, day)
	return nil
}

func runFirstIncome(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("first-income")
	strict := fs.Bool("exclude-gifts", false, "ignore gift income")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	var opts []ledger.IncomeOption
	if *strict {
		opts = append(opts, ledger.ExcludeGifts())
	}
	day, ok, err := a.ledger.EarliestExpenseDate(ctx, *profile, opts...)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "none")
		return nil
	}
	fmt.Fprintln(a.out, day)
	return nil
}

func runFixedAdd(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("fixed-add")
	start := fs.String("start", "", "first day (default today)")
	end := fs.String("end", "", "last day, optional")
	every := fs.String("every", "monthly", "daily, weekly, monthly or yearly")
	amount := fs.String("amount", "", "amount, e.g. 12.34")
	account := fs.String("account", "cash", "cash or a bank account id")
	desc := fs.String("desc", "", "description")
	category := fs.String("category", "", "category id")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	fe := core.FixedExpense{
		Every:       core.Frequency(strings.ToLower(*every)),
		Description: *desc,
		CategoryID:  *category,
	}
	var err error
	if fe.StartDate, err = a.day(*start); err != nil {
		return err
	}
	if *end != "" {
		if fe.EndDate, err = core.ParseDate(*end); err != nil {
			return err
		}
	}
	if fe.Amount, err = core.ParseAmount(*amount); err != nil {
		return fmt.Errorf("amount %q: %w", *amount, err)
	}
	if fe.Account, err = core.ParseAccountRef(*account); err != nil {
		return err
	}

	fe, err = a.ledger.AddFixedExpense(ctx, *profile, fe)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added fixed expense %s\n", fe.ID)
	return nil
}

func runFixed(ctx context.Context, a *app, args []string) error {
	fs, profile := a.flags("fixed")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	list, err := a.ledger.ListFixedExpenses(ctx, *profile)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"ID", "Description", "Amount", "Every", "Start", "End", "Last run"})
	for _, fe := range list {
		table.Append([]string{
			fe.ID, fe.Description, fe.Amount.String(), string(fe.Every),
			fe.StartDate.String(), fe.EndDate.String(), fe.LastExecution.String(),
		})
	}
	table.Render()
	return nil
}
