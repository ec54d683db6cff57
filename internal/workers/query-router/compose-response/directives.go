package composeresponse

import "clientatech-agent/internal/models"

// NoDataText answers every data intent whose statement returned no rows.
const NoDataText = "Não encontrei registros correspondentes na base de dados para essa consulta."

// GreetingText answers GREETING without touching the dataset or a model.
const GreetingText = `Olá! Eu sou o ClientaTech AI Analyst. 👋

Posso analisar a sua carteira de clientes:
• Perfil completo de uma empresa (status, plano e valor mensal)
• Histórico de interações
• Clientes em risco de churn
• Clientes sem contato recente
• Totais, vencimentos e outros dados gerais

Experimente perguntar:
1. "Me fale sobre o Supermercado Silva"
2. "Quais clientes estão em risco?"
3. "Quem está sem contato há mais de 30 dias?"`

type directive struct {
	presentation models.Presentation
	instructions string
}

// directives describe layout only. Field names come from the row columns.
var directives = map[models.Intent]directive{
	models.IntentProfile: {
		presentation: models.PresentationProfileCard,
		instructions: `Use the profile card layout, filling each field from the matching column:
📌 Cliente: [client name]
📊 Status: [status]
📄 Plano: [plan]
💰 Valor Mensal: R$ [monthly value]

ℹ️ Observações:
* [contract end, from the days-to-expiry column]
* [last interaction, from the days-since-contact column]`,
	},
	models.IntentHistory: {
		presentation: models.PresentationTimeline,
		instructions: `Use a bulleted list of events, most recent first.
Format each line as "Data - Descrição (há X dias)", taking X from the days-ago column.`,
	},
	models.IntentRisk: {
		presentation: models.PresentationRiskAlert,
		instructions: `Risk means a contract close to expiring or a long silence since the last interaction, as the day-count columns show.
If the user asks for good or best clients, list those WITHOUT risk. If they ask for bad or worst clients, list those WITH risk.
Always state the criteria used to decide the risk, then list the clients.`,
	},
	models.IntentAbsence: {
		presentation: models.PresentationAbsenceList,
		instructions: `List the clients found and state the days without contact for each one, e.g. "Sem contato há X dias".`,
	},
	models.IntentGeneral: {
		presentation: models.PresentationDirectAnswer,
		instructions: `Answer directly and concisely. Format currency as R$ with two decimals.`,
	},
}

const personaPrompt = `# ROLE
ClientaTech AI Analyst.

# GOAL
Answer the user's question using only the data provided.

# CONTEXT
MODE: %s
CURRENT_DATE: %s

# INSTRUCTIONS
%s

# RULES
1. Output language: Portuguese (pt-BR).
2. Use only the data provided. Never invent clients, values or dates.
3. Use calculated day-count columns to explain dates.
4. Never show SQL, code or code blocks.
5. Tone: professional. Emojis are allowed.
`

func directiveFor(intent models.Intent) directive {
	if d, ok := directives[intent]; ok {
		return d
	}
	return directives[models.IntentGeneral]
}

// PresentationFor returns the rendering tag of intent.
func PresentationFor(intent models.Intent) models.Presentation {
	if intent == models.IntentGreeting {
		return models.PresentationGreeting
	}
	return directiveFor(intent).presentation
}
