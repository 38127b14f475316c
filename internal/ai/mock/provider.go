package mock

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kiranshivaraju/elasticbot/internal/ai/chat"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// MockProvider satisfies models.AIProvider without calling any service. It
// is the default provider, so it needs no credentials.
type MockProvider struct {
	Name_         string
	Model_        string
	InterpretFunc func(ctx context.Context, req models.InterpretationRequest) (string, error)
}

func (m *MockProvider) Name() string  { return m.Name_ }
func (m *MockProvider) Model() string { return m.Model_ }

func (m *MockProvider) Interpret(ctx context.Context, req models.InterpretationRequest) (string, error) {
	if m.InterpretFunc != nil {
		return m.InterpretFunc(ctx, req)
	}
	return "", nil
}

// NewMockProvider returns a MockProvider that answers with a rule-based
// Spanish interpretation chosen by classification.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_:  "mock",
		Model_: "mock",
		InterpretFunc: func(_ context.Context, req models.InterpretationRequest) (string, error) {
			return RuleBased(req.Elasticity, req.Classification), nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_:  "mock-failing",
		Model_: "mock",
		InterpretFunc: func(_ context.Context, _ models.InterpretationRequest) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_:  "mock-timeout",
		Model_: "mock",
		InterpretFunc: func(ctx context.Context, _ models.InterpretationRequest) (string, error) {
			<-ctx.Done()
			return "", chat.ErrInferenceTimeout
		},
	}
}

// RuleBased writes a fixed interpretation for e. Coefficients above 10 in
// magnitude get a caution text whatever their classification.
func RuleBased(e float64, classification string) string {
	if math.Abs(e) > 10 {
		return fmt.Sprintf("El coeficiente de %.2f es inusualmente alto y debe interpretarse con cautela. "+
			"Puede deberse a que el precio del USDT/BOB varió muy poco durante el periodo analizado mientras el volumen "+
			"ofertado fluctuó por factores ajenos al precio. Para obtener resultados más confiables, seleccione un periodo "+
			"con mayor variación de precios o utilice el método de Regresión con más datos históricos.", e)
	}

	switch strings.ToUpper(classification) {
	case models.ClassificationInelastic:
		return fmt.Sprintf("El coeficiente de %.2f indica demanda inelástica: los cambios en el precio del USDT generan "+
			"cambios proporcionalmente menores en la cantidad demandada. En Bolivia esto confirma que el USDT funciona como "+
			"bien de necesidad, ya que las restricciones de acceso al dólar hacen que los usuarios mantengan su demanda "+
			"incluso cuando el precio sube. El mercado P2P se muestra estable, con demanda consistente para los vendedores.", e)
	case models.ClassificationElastic:
		return fmt.Sprintf("El coeficiente de %.2f indica demanda elástica: los cambios en el precio del USDT generan "+
			"cambios proporcionalmente mayores en la cantidad demandada. Es un comportamiento atípico en Bolivia, donde el "+
			"USDT suele actuar como refugio de valor. Puede reflejar incertidumbre económica o actividad especulativa, con "+
			"mayor volatilidad y precios que se ajustan rápidamente en el mercado P2P.", e)
	default:
		return fmt.Sprintf("El coeficiente de %.2f indica demanda unitaria: los cambios en precio y cantidad son "+
			"proporcionales. Sugiere un mercado en equilibrio donde conviven ahorristas que necesitan USDT sin importar el "+
			"precio y operadores sensibles al precio. Los ingresos de los vendedores se mantienen relativamente constantes "+
			"aunque el precio varíe.", e)
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
