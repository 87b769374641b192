package orders

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		texts []string
		want  string
	}{
		{[]string{"Instalación FTTH nueva"}, "installation"},
		{[]string{"INSTALACION"}, "installation"},
		{[]string{"cliente sin servicio desde ayer"}, "repair"},
		{[]string{"Avería en la línea"}, "repair"},
		{[]string{"Desinstalación por baja"}, "recovery"},
		{[]string{"retiro de equipo"}, "recovery"},
		{[]string{"repair"}, "repair"},
		{[]string{"", "llamar antes de ir"}, "other"},
		{nil, "other"},
	}
	for _, tt := range tests {
		if got := Classify(tt.texts...); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.texts, got, tt.want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Finalizado", "completed"},
		{"completada", "completed"},
		{"ANULADA", "cancelled"},
		{"visita", "visit"},
		{"en curso", "in_progress"},
		{"in_progress", "in_progress"},
		{"asignada", "assigned"},
		{"Difícil", "hard"},
		{"???", "pending"},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.text); got != tt.want {
			t.Errorf("ClassifyStatus(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
