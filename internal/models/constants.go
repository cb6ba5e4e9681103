package models

// Document categories, one per role folder. The bulk loader keeps one
// folder per category under the documents directory.
const CategoryGeneral = "general"

var ValidCategories = []string{
	"general",
	"estudiantes",
	"docentes",
	"administrativos",
	"externos",
	"aspirantes",
	"postulantes",
	"admision",
	"empleo",
}

// IsValidCategory reports whether c names one of the role categories.
func IsValidCategory(c string) bool {
	for _, valid := range ValidCategories {
		if c == valid {
			return true
		}
	}
	return false
}

// Closed intent code enum. Anything outside this list collapses to "otro".
const (
	IntentCodeBalconRequests = "consultar_solicitudes_balcon"
	IntentCodePersonalData   = "consultar_datos_personales"
	IntentCodeCurrentCareer  = "consultar_carrera_actual"
	IntentCodeUserRoles      = "consultar_roles_usuario"
	IntentCodeGreeting       = "saludo"
	IntentCodeOther          = "otro"
)

var ValidIntentCodes = []string{
	IntentCodeBalconRequests,
	IntentCodePersonalData,
	IntentCodeCurrentCareer,
	IntentCodeUserRoles,
	IntentCodeOther,
}

// Verbs that require a human agent rather than a documented answer.
var OperationalVerbs = []string{
	"solicitar", "cambiar", "justificar", "inscribir", "anular",
	"pagar", "subir", "rectificar", "retirar", "crear", "actualizar",
	"homologar", "convalidar", "recalificar", "tramitar",
}

// Substrings that mark an utterance as a how/where/when question. A
// question about an operational verb is still answered from documents.
var QuestionIndicators = []string{
	"como ", "cómo ", "requisitos", "pasos", "donde ", "dónde ",
	"cuando ", "cuándo ", "por qué",
}

// Tokens accepted by the greeting fast path.
var GreetingTokens = []string{"hola", "buenas", "hi", "alo"}

// Canned user-facing texts. Spanish is the assistant's working language.
const (
	GreetingResponse = "¡Hola! Soy el asistente virtual de UNEMI. ¿En qué puedo ayudarte hoy?"

	ApologyResponse = "Lo siento, tuve un problema entendiendo tu mensaje. ¿Podrías reformularlo?"

	GenericClarification = "¿Podrías darme un poco más de detalle sobre lo que necesitas?"

	EscalationResponse = "Lo siento, no encontré esa información en los reglamentos de tu perfil. " +
		"He derivado tu caso a un asesor humano que podrá ayudarte mejor."

	// HandoffTemplate is filled with the extracted action and object.
	HandoffTemplate = "Entendido. Para gestionar tu solicitud de **%s %s**, " +
		"un agente especializado se pondrá en contacto contigo en breve."

	SubHandoffTemplate = "Sobre tu requerimiento de **%s %s**, " +
		"he notificado a un asesor para que te ayude personalmente."

	DefaultAction = "procesar"
	DefaultObject = "tu solicitud"

	VisitorLabel = "Visitante"
)

// RAGPromptTemplate is the grounded-answer contract. Placeholders, in
// order: role label, context block, user query.
const RAGPromptTemplate = `YOU ARE AN ACADEMIC ASSISTANT FOR UNEMI.
Answer based ONLY on the provided CONTEXT.

TASK:
Return a JSON: { "has_information": bool, "need_contact": bool, "response": string, "sources": [] }

CRITICAL RULES:
1. IF NO INFO IN CONTEXT: Set "has_information": false, "need_contact": true, and "response": null. (DO NOT WRITE AN APOLOGY. SAVE TOKENS).
2. IF INFO EXISTS: Set "has_information": true. If manual action is needed, "need_contact": true. Write the answer in "response" in Spanish.
3. TRUTH IS ONLY IN THE CONTEXT. If it says "Prohibited", say it.
4. CONTEXT IS FILTERED FOR USER ROLE: %s. IGNORE IRRELEVANT INFO. If user asks about "Faltas", ignore "Tesis" or "Notas".

CONTEXT:
%s

USER QUERY:
%s
`

// ExpansionPromptTemplate rewrites a question into regulation-vocabulary
// search variants. Placeholder: the user question.
const ExpansionPromptTemplate = `Eres un experto en terminología de reglamentos universitarios (UNEMI).
Genera 3 variantes de búsqueda técnicas para la siguiente pregunta.
Corrige faltas ortográficas.
Usa SOLO el sentido académico de términos ambiguos: "falta" es una inasistencia
a clases, nunca una falta laboral ni interpersonal. Descarta los demás sentidos.

Output JSON format:
{
  "queries": ["variante 1", "variante 2", "variante 3"]
}

User Question: %s
`
