package oml

// MeasurementPoint declares and injects one kind of sample.
type MeasurementPoint struct {
	client *Client
	key    string
}

// Define returns the measurement point called name, declaring it on first
// use. After Start only points declared before it can be returned.
func (c *Client) Define(name string) (*MeasurementPoint, error) {
	if err := c.registry.Define(name); err != nil {
		return nil, err
	}
	return &MeasurementPoint{client: c, key: name}, nil
}

// Name renames the point on the wire. The definition key is unchanged.
func (m *MeasurementPoint) Name(name string) error {
	return m.client.registry.DeclareName(m.key, name)
}

// Param appends a field. typ is string, int32 or double.
func (m *MeasurementPoint) Param(name, typ string) error {
	return m.client.registry.DeclareField(m.key, name, typ)
}

// Channel sends the point's samples to the channel (name, domain) instead of,
// or in addition to, the default channel.
func (m *MeasurementPoint) Channel(name, domain string) error {
	return m.client.registry.DeclareChannel(m.key, name, domain)
}

// Inject records one sample. It returns an error when the values do not
// match the declared fields and does nothing before Start.
func (m *MeasurementPoint) Inject(values ...any) error {
	return m.client.registry.Inject(m.key, values...)
}
