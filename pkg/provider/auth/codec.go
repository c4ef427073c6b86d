package auth

import "wafl/pkg/packet"

// decodeStrings reads every declared input port of sig as a string value,
// short-circuiting to an Exception packet on any Error/Exception/Invalid
// or mistyped input (spec.md §4.C: a component sees one uniform failure
// signal, not a partially-decoded call).
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

func stringPacket(s string) packet.Packet {
	data, err := packet.Encode(s, packet.String())
	if err != nil {
		return packet.Error(err.Error())
	}
	return packet.Data(data, packet.String())
}
