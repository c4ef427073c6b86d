package inmemory

import "wafl/pkg/packet"

// decodeStrings reads every declared input port of sig as a string value
// out of payload. A missing port decodes as "". A packet that arrives as
// Error/Exception/Invalid short-circuits the whole call: spec.md §4.C
// requires a component see a uniform failure signal on every output port
// rather than attempt partial work with a bad input.
func decodeStrings(sig packet.ComponentSignature, payload map[string]packet.Packet) (map[string]string, *packet.Packet) {
	args := make(map[string]string, len(sig.Inputs))

	for _, in := range sig.Inputs {
		p, ok := payload[in.Name]
		if !ok {
			continue
		}
		switch p.Kind {
		case packet.KindError, packet.KindException:
			exc := packet.Exception(p.Message)
			return args, &exc
		case packet.KindInvalid:
			exc := packet.Exception("invalid")
			return args, &exc
		case packet.KindData:
			v, err := packet.Decode(p.Data, packet.String())
			if err != nil {
				exc := packet.Exception(err.Error())
				return args, &exc
			}
			args[in.Name] = v.(string)
		}
	}
	return args, nil
}

// stringPacket wraps s as a Data packet tagged string, the inverse of the
// decode above.
func stringPacket(s string) packet.Packet {
	data, err := packet.Encode(s, packet.String())
	if err != nil {
		// Encode can only fail here if the codec itself is broken; a
		// plain Go string always satisfies the string tag.
		return packet.Error(err.Error())
	}
	return packet.Data(data, packet.String())
}
