package dialogue

// Reply-button titles. The messaging platform echoes the title back as the
// inbound text, so these double as the transition table's input labels.
const (
	LabelPayroll         = "CONSIGNADO CLT"
	LabelFGTS            = "ANTECIPAR FGTS"
	LabelYes             = "SIM"
	LabelDoubts          = "TIRAR DÚVIDAS"
	LabelNoDoubt         = "NÃO (TIRAR DÚVIDA)"
	LabelAnotherDoubt    = "TIRAR OUTRA DÚVIDA"
	LabelCPFCorrect      = "CPF ESTÁ CORRETO"
	LabelNotMyCPF        = "NÃO É MEU CPF"
	LabelAuthorized      = "OK, AUTORIZADO"
	LabelWantDoubts      = "QUERO TIRAR DÚVIDAS"
	LabelNowAuthorized   = "AGORA AUTORIZEI"
	LabelStruggling      = "ESTOU COM DIFIC.."
	LabelMakeAnticipate  = "REALIZAR ANTECIPAÇÃO"
	LabelDetailsCorrect  = "ESTÃO CORRETAS"
	LabelDetailsWrong    = "NÃO ESTÃO CORRETAS"
	keywordAuthorized    = "autorizado"
	keywordTooLittle     = "pouco"
	resetCommand         = "0"
	nubankCode           = "260"
	defaultImageMimeType = "image/jpeg"
)

// Interactive message names, kept stable for the platform's reports.
const (
	nameMenu           = "menu_inicial"
	namePayroll        = "state_credito_consignado"
	nameConfirmCPF     = "state_antecipar_fgts_confirmar_cpf"
	nameOptIn          = "state_antecipar_fgts_verificar_saque_aniversario"
	nameFGTSDoubts     = "state_antecipar_fgts_duvidas"
	nameAuthorize      = "antecipar_fgts_autorizar_bancos"
	nameAuthorizeNudge = "state_antecipar_fgts_autorizar_bancos"
	nameOffer          = "simulate_fgts"
	nameConfirmBanking = "confirmar_dados_bancarios"
)
