package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/payment"
)

func (cli *commandLine) plans(ctx context.Context) error {
	usr, err := cli.currentUser(ctx)
	if err != nil {
		return err
	}

	plans, err := cli.paySvc.Plans(ctx, "", usr.InstitutionID)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Println("No payment plans.")
		return nil
	}
	for _, plan := range plans {
		fmt.Printf("%s  %-28s %8d %s  due %s\n", plan.ID, plan.Name, plan.Amount, plan.Currency, plan.DueDate.Format("2006-01-02"))
	}
	return nil
}

func (cli *commandLine) history(ctx context.Context) error {
	usr, err := cli.currentUser(ctx)
	if err != nil {
		return err
	}

	recs, err := cli.paySvc.History(ctx, usr.ID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No payments yet.")
		return nil
	}
	for _, rec := range recs {
		fmt.Printf("%s  %8d %s  %-9s  %s\n", rec.Reference, rec.Amount, rec.Currency, rec.Status, rec.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (cli *commandLine) stats(ctx context.Context) error {
	usr, err := cli.currentUser(ctx)
	if err != nil {
		return err
	}

	stats, err := cli.paySvc.Stats(ctx, usr.ID, "", usr.InstitutionID)
	if err != nil {
		return err
	}
	fmt.Printf("Total paid:    %d\n", stats.TotalPaid)
	fmt.Printf("Total pending: %d\n", stats.TotalPending)
	if !stats.NextDueDate.IsZero() {
		fmt.Printf("Next due date: %s\n", stats.NextDueDate.Format("2006-01-02"))
	}
	return nil
}

// pay drives the checkout flow for one plan: collect the phone number, submit
// to the gateway, then wait for the external confirmation. In demo mode (no
// gateway configured) the confirmation is simulated after a fixed delay.
func (cli *commandLine) pay(ctx context.Context, planID, phone string) error {
	usr, err := cli.currentUser(ctx)
	if err != nil {
		return err
	}
	if !usr.IsStudent() {
		return fmt.Errorf("only students can pay fees")
	}

	plan, err := cli.paySvc.GetPlan(ctx, planID)
	if err != nil {
		return err
	}

	flow := payment.NewFlow(cli.paySvc, usr)
	done := make(chan struct{})
	flow.OnRefresh(func() { close(done) })

	flow.Select(plan)
	fmt.Printf("Paying %q: %d %s\n", plan.Name, plan.Amount, plan.Currency)

	checkout, err := flow.Confirm(ctx, phone)
	if err != nil {
		fmt.Println(flow.ErrMessage())
		return err
	}
	fmt.Printf("Complete the payment at: %s\n", checkout.URL)
	fmt.Printf("Reference: %s\n", checkout.Reference)

	if cli.conf.GatewayConfigured() {
		fmt.Println("Awaiting confirmation from the gateway; check `history` later.")
		return nil
	}

	// demo mode: simulate the gateway's completion callback
	confirmer := payment.NewAutoConfirmer(flow, cli.conf.Gateway.AutoConfirmDelay, cli.logger)
	confirmer.Arm(ctx, checkout.Reference)
	<-done

	if flow.State() == payment.FlowError {
		fmt.Println(flow.ErrMessage())
		return nil
	}
	fmt.Println("Payment completed.")
	return cli.stats(ctx)
}
