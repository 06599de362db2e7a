package events

type subSettings struct {
	buffer int
}

var subSettingsDefault = subSettings{
	buffer: 16,
}

// BufSize sets the buffer size of the subscription channel.
func BufSize(n int) SubscriptionOpt {
	return func(s interface{}) error {
		if n < 0 {
			return errNegativeBuffer
		}
		s.(*subSettings).buffer = n
		return nil
	}
}
