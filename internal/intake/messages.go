package intake

import "fmt"

const (
	MsgResumeAck         = "Recebi seu currículo! Vou analisá-lo e em breve te dou um retorno."
	MsgUnsupportedDoc    = "Formato de arquivo não suportado. Por favor, envie seu currículo em PDF, XLSX ou CSV."
	MsgUnsupportedType   = "Desculpe, só consigo processar mensagens de texto ou documentos (PDF, XLSX, CSV)."
	MsgResumeNoFields    = "Analisei seu currículo, mas não consegui extrair as informações principais. Vamos tentar com as perguntas. Para começar, qual seu nome completo?"
	MsgResumeFailed      = "Tive um problema ao processar seu currículo. Poderia tentar enviar novamente? Se o erro persistir, podemos continuar com as perguntas."
	resumeSummaryPattern = "Consegui extrair os seguintes dados do seu currículo:\n\n%s\n\nEstá tudo correto? Se algo estiver faltando ou incorreto, por favor, me informe."
)

func acceptedDocumentText(filename string) string {
	return "[Arquivo] Currículo enviado: " + filename
}

func rejectedDocumentText(filename, mimeType string) string {
	return fmt.Sprintf("[Arquivo rejeitado] %s (%s)", filename, mimeType)
}

func unsupportedTypeText(kind string) string {
	return fmt.Sprintf("[Mensagem não suportada] %s", kind)
}
