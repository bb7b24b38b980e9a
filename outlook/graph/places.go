package graph

// PlacesAPI covers rooms and room lists of the tenant.
type PlacesAPI struct{ *segment }

func NewPlacesAPI(client *Client) (*PlacesAPI, error) {
	s, err := newSegment(SegmentPlaces, client, placeEndpoints())
	if err != nil {
		return nil, err
	}
	return &PlacesAPI{segment: s}, nil
}

func placeEndpoints() []*Endpoint {
	const s = SegmentPlaces
	return []*Endpoint{
		get(s, "placesListRooms", "/places/microsoft.graph.room", "List rooms in the tenant.", pageOptions(odata("skip"))),
		get(s, "placesListRoomLists", "/places/microsoft.graph.roomlist", "List room lists in the tenant.", pageOptions(odata("skip"))),
		get(s, "placesListRoomsInRoomList", "/places/{room_list_email}/microsoft.graph.roomlist/rooms", "List rooms in a room list.", pageOptions()),
		get(s, "placesGetPlace", "/places/{place_id}", "Get a room or room list by id or email address."),
		patch(s, "placesUpdatePlace", "/places/{place_id}", "Update a room or room list.",
			one(odataType(true, "#microsoft.graph.room or #microsoft.graph.roomList"),
				body("display_name", "string", "display name").as("displayName"),
				body("building", "string", "building name"),
				body("floor_number", "integer", "floor").as("floorNumber"),
				body("floor_label", "string", "floor label").as("floorLabel"),
				body("capacity", "integer", "room capacity"),
				body("booking_type", "string", "standard or reserved").as("bookingType"),
				body("is_wheel_chair_accessible", "boolean", "wheelchair accessible").as("isWheelChairAccessible"),
				body("audio_device_name", "string", "audio device").as("audioDeviceName"),
				body("video_device_name", "string", "video device").as("videoDeviceName"),
				body("display_device_name", "string", "display device").as("displayDeviceName"),
				body("tags", "array", "free-form tags"),
				body("phone", "string", "phone number"),
				body("address", "object", "physicalAddress"),
				body("geo_coordinates", "object", "outlookGeoCoordinates").as("geoCoordinates"))),
	}
}
