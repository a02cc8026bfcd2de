package dialogue

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/aretw0/funil/internal/rates"
	"github.com/aretw0/funil/pkg/domain"
)

type handler func(ctx context.Context, t *turn) error

type rule struct {
	name   string
	match  matcher
	handle handler
	// to lists the states the handler may move to; stay means unchanged.
	to []domain.State
}

const stay domain.State = ""

func to(states ...domain.State) []domain.State { return states }

func (e *Engine) transitions() map[domain.State][]rule {
	fgts := []rule{
		{"authorization_tips", exact(LabelWantDoubts), e.authorizationTips, to(stay)},
		{"handoff", exact(LabelAnotherDoubt, LabelStruggling), e.handoff, to(stay)},
		{"simulate", always, e.simulate, to(stay, domain.StateConfirmBankingDetails)},
	}
	banking := []rule{
		{"sympathy", contains(keywordTooLittle), e.sympathy, to(stay)},
		{"submit", exact(LabelDetailsCorrect), e.submit, to(domain.StateMakeAnticipation)},
		{"collect_banking", exact(LabelDetailsWrong), e.collectBanking, to(domain.StateCollectBankingDetails)},
		{"confirm_banking", always, e.confirmBanking, to(stay, domain.StateCollectBankingDetails)},
	}

	initial := []rule{
		{"start_fgts", exact(LabelFGTS), e.startFGTS, to(domain.StateFGTSOptInCheck, domain.StateFGTSAnticipation)},
		{"payroll", exact(LabelPayroll), e.payroll, to(domain.StatePayrollLoan)},
	}

	return map[domain.State][]rule{
		domain.StateInitial: initial,
		domain.StatePayrollLoan: {
			{"payroll_simulation", exact(LabelYes), e.payrollSimulation, to(domain.StatePayrollSimulationConfirmed)},
			{"payroll_faq", exact(LabelDoubts), e.payrollFAQ, to(domain.StateClarifyDoubts)},
		},
		domain.StateClarifyDoubts: {
			{"payroll_simulation", exactFold(LabelYes), e.payrollSimulation, to(domain.StatePayrollSimulationConfirmed)},
		},
		// The contact is with a specialist; a menu choice still starts over.
		domain.StatePayrollSimulationConfirmed: append(initial[:len(initial):len(initial)],
			rule{"menu", always, e.menu, to(domain.StateInitial)},
		),
		domain.StateFGTSOptInCheck: {
			{"fgts_faq", exact(LabelNoDoubt), e.fgtsFAQ, to(stay)},
			{"handoff", exact(LabelAnotherDoubt), e.handoff, to(stay)},
			{"collect_cpf", exact(LabelYes), e.collectCPF, to(domain.StateFGTSAnticipation)},
		},
		domain.StateFGTSAnticipation:                  fgts,
		domain.StateBirthdayWithdrawalAlreadyEnrolled: fgts,
		domain.StateAuthorized:                        fgts,
		domain.StateConfirmBankingDetails:             banking,
		domain.StateMakeAnticipation:                  banking,
		domain.StateCollectBankingDetails: {
			{"parse_banking", always, e.parseBanking, to(stay, domain.StateConfirmBankingDetails)},
		},
	}
}

func (e *Engine) menu(ctx context.Context, t *turn) error {
	t.s.State = domain.StateInitial
	t.buttons(ctx, nameMenu, copyMenu, t.view(), LabelPayroll, LabelFGTS)
	return nil
}

func (e *Engine) startFGTS(ctx context.Context, t *turn) error {
	if t.s.CPF == "" {
		t.s.State = domain.StateFGTSOptInCheck
		t.buttons(ctx, nameOptIn, copyOptIn, t.view(), LabelYes, LabelNoDoubt)
		return nil
	}
	t.s.State = domain.StateFGTSAnticipation
	v := t.view()
	v.CPF = domain.FormatCPF(t.s.CPF)
	t.buttons(ctx, nameConfirmCPF, copyConfirmCPF, v, LabelCPFCorrect, LabelNotMyCPF)
	return nil
}

func (e *Engine) payroll(ctx context.Context, t *turn) error {
	t.s.State = domain.StatePayrollLoan
	t.buttons(ctx, namePayroll, copyPayrollPrompt, t.view(), LabelYes, LabelDoubts)
	return nil
}

func (e *Engine) payrollSimulation(ctx context.Context, t *turn) error {
	t.s.State = domain.StatePayrollSimulationConfirmed
	t.say(ctx, copyPayrollSimulation, t.view())
	t.say(ctx, copySpecialist, t.view())
	t.transfer(ctx)
	return nil
}

func (e *Engine) payrollFAQ(ctx context.Context, t *turn) error {
	t.s.State = domain.StateClarifyDoubts
	t.say(ctx, copyPayrollFAQ, t.view())
	return nil
}

func (e *Engine) fgtsFAQ(ctx context.Context, t *turn) error {
	t.buttons(ctx, nameFGTSDoubts, copyFGTSFAQ, t.view(), LabelYes, LabelAnotherDoubt)
	return nil
}

func (e *Engine) handoff(ctx context.Context, t *turn) error {
	t.say(ctx, copySpecialist, t.view())
	t.transfer(ctx)
	return nil
}

func (e *Engine) collectCPF(ctx context.Context, t *turn) error {
	t.s.State = domain.StateFGTSAnticipation
	t.say(ctx, copyCollectCPF, t.view())
	return nil
}

func (e *Engine) authorizationTips(ctx context.Context, t *turn) error {
	t.buttons(ctx, nameFGTSDoubts, copyAuthorizationTips, t.view(), LabelAuthorized, LabelAnotherDoubt)
	return nil
}

var useStoredCPF = exact(LabelCPFCorrect, LabelAuthorized, LabelNowAuthorized)

// simulate resolves the CPF from the input or the session, runs the rate
// comparison and answers with the outcome.
func (e *Engine) simulate(ctx context.Context, t *turn) error {
	switch {
	case useStoredCPF(t.text) || contains(keywordAuthorized)(t.text):
		if t.s.CPF == "" {
			t.say(ctx, copyCollectCPF, t.view())
			return nil
		}
	case t.text == LabelNotMyCPF:
		t.say(ctx, copyWrongCPF, t.view())
		return nil
	default:
		candidate, ok := extractCPF(t.text)
		if !ok {
			t.say(ctx, copyCollectCPF, t.view())
			return nil
		}
		cpf, err := domain.ParseCPF(candidate)
		if err != nil {
			t.invalid = err
			t.say(ctx, copyInvalidCPF, t.view())
			return nil
		}
		t.s.CPF = cpf
	}

	out, err := e.rates.Compare(ctx, t.s.CPF)
	if err != nil {
		return fmt.Errorf("rate comparison aborted: %w", err)
	}
	e.logger.Info("Rate comparison finished", "contact_id", t.to.ContactID, "cpf", domain.MaskCPF(t.s.CPF), "outcome", out.Kind)

	switch out.Kind {
	case rates.KindHalted:
		if out.Message == "" {
			t.say(ctx, copyNoValue, t.view())
			break
		}
		t.sayRaw(ctx, out.Message)
	case rates.KindBirthdayBlocked:
		t.say(ctx, copyBirthday, t.view())
	case rates.KindNoBalance, rates.KindNoValue:
		t.say(ctx, copyNoValue, t.view())
	case rates.KindNoValueTransfer:
		t.say(ctx, copyNoValue, t.view())
		t.transfer(ctx)
	case rates.KindNotAuthorized:
		t.s.InteractionCount++
		e.askAuthorization(ctx, t)
	case rates.KindOffer:
		t.s.SelectedOffer = out.Offer
		t.s.ProposalLink = ""
		t.s.State = domain.StateConfirmBankingDetails
		v := t.view()
		v.Amount = formatAmount(out.Offer.AmountReleased)
		t.buttons(ctx, nameOffer, copyOffer, v, LabelMakeAnticipate)
	default:
		return fmt.Errorf("unknown comparison outcome %q", out.Kind)
	}
	return nil
}

func (e *Engine) askAuthorization(ctx context.Context, t *turn) {
	if t.s.InteractionCount > 1 {
		t.buttons(ctx, nameAuthorizeNudge, copyAuthorizeNudge, t.view(), LabelNowAuthorized, LabelStruggling)
		return
	}
	t.buttons(ctx, nameAuthorize, copyAuthorize, t.view(), LabelAuthorized, LabelWantDoubts)

	if e.imagePath == "" {
		return
	}
	data, err := e.readFile(e.imagePath)
	if err != nil {
		e.logger.Error("Failed to read authorization image", "path", e.imagePath, "err", err)
		return
	}
	mimeType := mime.TypeByExtension(filepath.Ext(e.imagePath))
	if mimeType == "" {
		mimeType = defaultImageMimeType
	}
	t.deliver(ctx, domain.OutboundMessage{
		Kind: domain.MessageMedia,
		Media: &domain.Media{
			Base64:   base64.StdEncoding.EncodeToString(data),
			MimeType: mimeType,
			Name:     filepath.Base(e.imagePath),
		},
	})
}

func (e *Engine) sympathy(ctx context.Context, t *turn) error {
	t.say(ctx, copySympathy, t.view())
	return nil
}

// submit registers the proposal. A session that already holds a link gets
// the link again instead of a second proposal.
func (e *Engine) submit(ctx context.Context, t *turn) error {
	if t.s.ProposalLink != "" {
		return e.resendLink(ctx, t)
	}

	t.s.State = domain.StateMakeAnticipation
	if err := t.persist(ctx); err != nil {
		return err
	}

	res, err := e.proposals.Submit(ctx, t.s)
	if err != nil {
		return fmt.Errorf("proposal submission failed: %w", err)
	}
	t.s.ProposalLink = res.Link

	v := t.view()
	v.Link = res.Link
	t.say(ctx, copySuccess, v)
	return nil
}

func (e *Engine) resendLink(ctx context.Context, t *turn) error {
	v := t.view()
	v.Link = t.s.ProposalLink
	t.say(ctx, copySuccess, v)
	return nil
}

func (e *Engine) collectBanking(ctx context.Context, t *turn) error {
	t.s.State = domain.StateCollectBankingDetails
	t.say(ctx, copyCollectBanking, t.view())
	return nil
}

// confirmBanking shows the payout account the proposal would use, or asks
// for one when the backend has none on file.
func (e *Engine) confirmBanking(ctx context.Context, t *turn) error {
	if t.s.State == domain.StateMakeAnticipation && t.s.ProposalLink != "" {
		return e.resendLink(ctx, t)
	}

	res, err := e.proposals.Confirm(ctx, t.s)
	if errors.Is(err, domain.ErrNoAccount) {
		return e.collectBanking(ctx, t)
	}
	if err != nil {
		return fmt.Errorf("banking confirmation failed: %w", err)
	}

	key := copyConfirmHistoryBanking
	if d := t.s.BankingDetails; d != nil && d.Source == domain.BankingFromUser {
		key = copyConfirmUserBanking
	} else if res.Details.Complete() {
		// Keep the account shown to the contact; history entries with
		// missing fields are not stored.
		t.s.BankingDetails = res.Details
	}
	v := t.view()
	v.AccountType = res.AccountType
	v.Bank = res.BankName
	v.Branch = res.Branch
	v.Account = res.Account
	t.buttons(ctx, nameConfirmBanking, key, v, LabelDetailsCorrect, LabelDetailsWrong)
	return nil
}

func (e *Engine) parseBanking(ctx context.Context, t *turn) error {
	d, err := ParseBanking(t.text)
	if err != nil {
		t.invalid = err
		t.say(ctx, copyInvalidBanking, t.view())
		return nil
	}

	t.s.BankingDetails = d
	t.s.State = domain.StateConfirmBankingDetails
	t.buttons(ctx, nameConfirmBanking, copyConfirmUserBanking, view{
		Name:        t.s.DisplayName,
		AccountType: displayAccountType(d.AccountType),
		Bank:        d.BankCode,
		Branch:      d.Branch,
		Account:     d.Account,
	}, LabelDetailsCorrect, LabelDetailsWrong)
	return nil
}
