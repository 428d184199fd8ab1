package cratecfg

import "mvlcdaq/pkg/mvlcproto"

func amodFromByte(b uint8) mvlcproto.AddressModifier { return mvlcproto.AddressModifier(b) }

func widthFromByte(b uint8) mvlcproto.DataWidth { return mvlcproto.DataWidth(b) }

func specialFromByte(b uint8) mvlcproto.WriteSpecialKind { return mvlcproto.WriteSpecialKind(b) }
