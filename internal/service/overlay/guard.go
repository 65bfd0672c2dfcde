package overlay

// Guard владеет видимостью окон оверлея на время захвата экрана: окна
// прячутся перед платформенным снимком, чтобы оверлей не снимал сам себя.
type Guard interface {
	Hide()
	Restore()
}

// WithHidden скрывает оверлей на время fn и восстанавливает видимость на всех
// путях выхода, включая ошибку захвата или анализа: hide = захват ресурса,
// restore = освобождение.
func WithHidden(g Guard, fn func() error) error {
	g.Hide()
	defer g.Restore()
	return fn()
}

// Noop для платформ без оконного оверлея и для тестов.
type Noop struct{}

func (Noop) Hide()    {}
func (Noop) Restore() {}
