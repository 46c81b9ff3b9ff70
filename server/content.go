package server

// topic is the static text of a use-case or concepts page.
type topic struct {
	Title       string
	Paragraphs  []string
	PracticeURL string
}

var useCases = map[string]topic{
	"/Salud": {
		Title: "Salud",
		Paragraphs: []string{
			"Los modelos de clasificación ayudan a estimar el riesgo de reingreso hospitalario o la probabilidad de una enfermedad a partir de historiales clínicos.",
			"La regresión permite prever la demanda de camas, personal o medicamentos.",
		},
	},
	"/Ciberseguridad": {
		Title: "Ciberseguridad",
		Paragraphs: []string{
			"La clasificación de tráfico y de correos distingue actividad legítima de intentos de intrusión o phishing.",
			"Los modelos se reentrenan con nuevos incidentes para adaptarse a ataques cambiantes.",
		},
	},
	"/Retail": {
		Title: "Retail",
		Paragraphs: []string{
			"La regresión estima ventas y niveles de inventario; la clasificación predice el abandono de clientes.",
			"Las recomendaciones personalizadas combinan ambos enfoques.",
		},
	},
	"/Transporte": {
		Title: "Transporte",
		Paragraphs: []string{
			"Los modelos predicen tiempos de llegada, demanda de pasajeros y fallos de mantenimiento en la flota.",
			"La clasificación de rutas ayuda a detectar congestión antes de que ocurra.",
		},
	},
}

var concepts = map[string]topic{
	"/LRConceptos": {
		Title: "Regresión lineal: conceptos",
		Paragraphs: []string{
			"La regresión lineal modela una variable continua como combinación lineal de las variables de entrada más un término independiente.",
			"Los coeficientes se obtienen minimizando la suma de los errores al cuadrado (mínimos cuadrados ordinarios).",
			"En la práctica se estima el peso de un objeto a partir de su volumen y su densidad.",
		},
		PracticeURL: "/LRPractico",
	},
	"/ConceptosRL": {
		Title: "Regresión logística: conceptos",
		Paragraphs: []string{
			"La regresión logística estima la probabilidad de que una observación pertenezca a la clase positiva aplicando la función sigmoide a una combinación lineal de las variables.",
			"La etiqueta final se decide comparando esa probabilidad con un umbral, por defecto 0,5.",
			"Las variables se estandarizan antes del entrenamiento y el modelo se regulariza con penalización L2.",
		},
		PracticeURL: "/PracticoRL",
	},
	"/AlgConceptos": {
		Title: "Algoritmos de clasificación: conceptos",
		Paragraphs: []string{
			"Un clasificador asigna cada observación a una categoría. Entre los más usados están la regresión logística, los árboles de decisión y los k vecinos más cercanos.",
			"k vecinos más cercanos (k-NN) predice la clase mayoritaria entre los k ejemplos de entrenamiento más próximos; la probabilidad es la proporción de votos.",
			"Se evalúan con exactitud, precisión, exhaustividad, F1 y la matriz de confusión.",
		},
		PracticeURL: "/AlgPractico",
	},
}
